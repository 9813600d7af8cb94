// Inline keyboards and callback-data constants for the manager console.
// Callback data is the routing key: fixed strings for menu actions, prefixed
// strings carrying an id for per-entity actions.
package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbShowTickets    = "show_tickets"
	cbShowStats      = "show_stats"
	cbManageManagers = "manage_managers"
	cbHelp           = "help"
	cbAddManager     = "add_manager"
	cbListManagers   = "list_managers"
	cbBackToMain     = "back_to_main"
	cbCancel         = "cancel"

	cbPrefixAnswer        = "answer_"
	cbPrefixClose         = "close_"
	cbPrefixRemoveManager = "remove_manager_"
	cbPrefixConfirmRemove = "confirm_remove_"
)

// mainMenuKeyboard is the console entry point; the managers submenu button
// only appears for admins.
func mainMenuKeyboard(isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("📋 Tickets", cbShowTickets),
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", cbShowStats),
		},
	}
	if isAdmin {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("👥 Managers", cbManageManagers),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("ℹ️ Help", cbHelp),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ticketKeyboard offers the two resolutions for one pending ticket.
func ticketKeyboard(ticketID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Answer", cbPrefixAnswer+strconv.FormatInt(ticketID, 10)),
			tgbotapi.NewInlineKeyboardButtonData("✅ Close", cbPrefixClose+strconv.FormatInt(ticketID, 10)),
		),
	)
}

// manageManagersKeyboard is the admin submenu.
func manageManagersKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add", cbAddManager),
			tgbotapi.NewInlineKeyboardButtonData("📃 List", cbListManagers),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToMain),
		),
	)
}

// removeManagerKeyboard lists one removal button per active manager.
func removeManagerKeyboard(entries []managerEntry) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(entries)+1)
	for _, e := range entries {
		label := fmt.Sprintf("🗑 %s (%d)", e.Nickname, e.ChatID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbPrefixRemoveManager+strconv.FormatInt(e.ChatID, 10)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToMain),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// confirmRemoveKeyboard asks the admin to confirm one removal.
func confirmRemoveKeyboard(chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes, remove", cbPrefixConfirmRemove+strconv.FormatInt(chatID, 10)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
}

// cancelKeyboard aborts a multi-step flow.
func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
}

// backKeyboard returns to the main menu.
func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBackToMain),
		),
	)
}

// parseCallbackID splits "<prefix><int64>" callback data, reporting ok=false
// when the prefix does not match or the id is malformed.
func parseCallbackID(data, prefix string) (int64, bool) {
	raw, found := strings.CutPrefix(data, prefix)
	if !found {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
