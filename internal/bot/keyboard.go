package bot

import (
	"fmt"

	"starshop/internal/model"

	tele "gopkg.in/telebot.v3"
)

// Callback uniques.
const (
	btnBuy         = "buy"
	btnFAQ         = "faq"
	btnMain        = "main"
	btnDownload    = "download"
	btnAdmin       = "admin"
	btnToggleSales = "toggle_sales"
)

func buyLabel(offer model.Offer) string {
	return fmt.Sprintf("✨ Купити • %d UAH ( ~%d )", offer.PriceUAH, offer.OldPriceUAH)
}

// pageMarkup is the keyboard under the main and FAQ pages. forward selects
// the "next" button of the main page instead of "back".
func pageMarkup(offer model.Offer, forward, isAdmin bool) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := []tele.Row{markup.Row(markup.Data(buyLabel(offer), btnBuy))}
	if forward {
		rows = append(rows, markup.Row(markup.Data("➡️ Далі", btnFAQ)))
	} else {
		rows = append(rows, markup.Row(markup.Data("⏪ Назад", btnMain)))
	}
	if isAdmin {
		rows = append(rows, markup.Row(markup.Data("Керування 🤖", btnAdmin)))
	}
	markup.Inline(rows...)
	return markup
}

// downloadMarkup shows a link when the user has access and a URL is set,
// otherwise a button that re-checks access.
func downloadMarkup(hasAccess bool, url string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	if hasAccess && url != "" {
		markup.Inline(markup.Row(markup.URL("📥 Скачати", url)))
	} else {
		markup.Inline(markup.Row(markup.Data("📥 Скачати", btnDownload)))
	}
	return markup
}

func adminMarkup(offer model.Offer) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	label := "⛔️ Зупинити продаж"
	if !offer.SalesEnabled {
		label = "✅ Відновити продаж"
	}
	markup.Inline(
		markup.Row(markup.Data(label, btnToggleSales)),
		markup.Row(markup.Data("⏪ Назад", btnMain)),
	)
	return markup
}
