package bot

import (
	"partnerbot/pkg/config"
	"partnerbot/pkg/i18n"
	"partnerbot/services/profile"
	"partnerbot/services/settings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const langCallbackPrefix = "lang:"

// LangKeyboard lists every supported language tag, two buttons per row.
// Labels are native names, so they render the same for every viewer. A tag
// without a catalog label is skipped rather than shown as a raw key.
func LangKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for _, tag := range i18n.Langs() {
		if !i18n.HasKey("lang.btn."+tag, config.DefaultLang) {
			continue
		}
		label := i18n.T("lang.btn."+tag, config.DefaultLang)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, langCallbackPrefix+tag))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// MenuKeyboard builds the localized main menu. The mini-app link carries
// the user's language and referral code so the form opens pre-filled.
func MenuKeyboard(cfg *config.Config, links settings.Links, lang, ref string) tgbotapi.InlineKeyboardMarkup {
	appURL := profile.WebAppURL(cfg, lang, ref)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(i18n.T("menu.btn.open_app", lang), appURL),
		),
	}

	var second []tgbotapi.InlineKeyboardButton
	if links.SupportURL != "" {
		second = append(second, tgbotapi.NewInlineKeyboardButtonURL(i18n.T("menu.btn.support", lang), links.SupportURL))
	}
	if links.RefURL != "" {
		second = append(second, tgbotapi.NewInlineKeyboardButtonURL(i18n.T("menu.btn.site", lang), links.RefURL))
	}
	if len(second) > 0 {
		rows = append(rows, second)
	}

	if links.TokenURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(i18n.T("menu.btn.token", lang), links.TokenURL),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
