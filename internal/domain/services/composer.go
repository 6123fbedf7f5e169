// Package services holds pure domain logic shared by the publish cycle:
// message composition and the content-reuse picker.
package services

import (
	"fmt"
	"strings"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// MaxPostLength is the hard ceiling every composed message must respect.
const MaxPostLength = 280

// CompositionInput is everything the Composer needs to assemble a message.
// Text carries the news summary for content_type=news, or the quote/joke
// body for content_type in {quote, joke}; it is empty for price_fallback.
type CompositionInput struct {
	PriceUSD          float64
	ChangePct         float64
	ContentType       entities.ContentType
	SignificanceLabel *entities.SignificanceLabel
	SentimentLabel    *entities.SentimentLabel
	Text              string
}

// Compose assembles the final message text for a publish cycle, applying
// the content-type template table and the 280-character truncation rule.
// Grounded in the original bot's TweetHandler._format_tweet, generalized to
// the full significance/sentiment template matrix.
func Compose(in CompositionInput) string {
	priceLine := formatPriceLine(in.PriceUSD, in.ChangePct)

	switch in.ContentType {
	case entities.ContentTypeNews:
		return composeNews(priceLine, in)
	case entities.ContentTypeQuote, entities.ContentTypeJoke:
		return composeQuoteOrJoke(priceLine, in.ChangePct, in.Text)
	default:
		return composePriceFallback(priceLine, in.ChangePct)
	}
}

// PriceEmoji returns the directional emoji used on every price line,
// independent of content type.
func PriceEmoji(changePct float64) string {
	if changePct >= 0 {
		return "📈"
	}
	return "📉"
}

func formatPriceLine(priceUSD, changePct float64) string {
	return fmt.Sprintf("BTC: %s | %s%%", formatUSD(priceUSD), formatSignedPercent(changePct))
}

// formatUSD renders a dollar amount with thousands separators and two
// decimal places, e.g. 50000 -> "$50,000.00". No stdlib formatter produces
// grouped decimals, so this is hand-rolled.
func formatUSD(value float64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	whole := int64(value)
	cents := int64((value-float64(whole))*100 + 0.5)
	if cents == 100 {
		whole++
		cents = 0
	}

	wholeStr := fmt.Sprintf("%d", whole)
	grouped := groupThousands(wholeStr)

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, grouped, cents)
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)
	return strings.Join(parts, ",")
}

func formatSignedPercent(changePct float64) string {
	return fmt.Sprintf("%+.2f", changePct)
}

func composeNews(priceLine string, in CompositionInput) string {
	emoji, lead, tag := newsTemplate(in.SignificanceLabel, in.SentimentLabel)
	line1 := priceLine + " " + emoji
	body := func(summary string) string {
		return strings.TrimSpace(fmt.Sprintf("%s %s %s", lead, summary, tag))
	}
	full := line1 + "\n" + body(in.Text)
	if len(full) <= MaxPostLength {
		return full
	}

	// Only the summary is shortened; the lead phrase and hashtag stay intact.
	overflow := len(full) - MaxPostLength + len("…")
	if overflow > len(in.Text) {
		overflow = len(in.Text)
	}
	summary := strings.TrimRight(in.Text[:len(in.Text)-overflow], " ") + "…"
	return line1 + "\n" + body(summary)
}

// newsTemplate resolves the (emoji, lead phrase, trailing hashtag) triple for
// a significance/sentiment pair.
func newsTemplate(sig *entities.SignificanceLabel, sentiment *entities.SentimentLabel) (emoji, lead, tag string) {
	sigLabel := entities.SignificanceLow
	if sig != nil {
		sigLabel = *sig
	}
	sentLabel := entities.SentimentNeutral
	if sentiment != nil {
		sentLabel = *sentiment
	}

	switch sigLabel {
	case entities.SignificanceHigh:
		switch sentLabel {
		case entities.SentimentPositive:
			return "🚀", "🔥 BIG NEWS for #Bitcoin!", "#CryptoNews"
		case entities.SentimentNegative:
			return "⚠️", "🚨 Critical #Bitcoin Update!", "#CryptoAlert"
		default:
			return "📰", "📢 Key #Bitcoin Development:", "#BTCNews"
		}
	case entities.SignificanceMedium:
		switch sentLabel {
		case entities.SentimentPositive:
			return "📈", "👍 Positive #Bitcoin Signal:", "#Crypto"
		case entities.SentimentNegative:
			return "📉", "❗ Notable #Bitcoin Update (Caution):", "#BTC"
		default:
			return "📊", "🔍 #Bitcoin Update:", "#CryptoReport"
		}
	default:
		switch sentLabel {
		case entities.SentimentPositive:
			return "💡", "", "#Bitcoin"
		case entities.SentimentNegative:
			return "➡️", "", "#Bitcoin"
		default:
			return "🧐", "", "#Bitcoin"
		}
	}
}

func composeQuoteOrJoke(priceLine string, changePct float64, text string) string {
	line1 := priceLine + " " + PriceEmoji(changePct)
	return truncateAndJoin(line1, text, []string{"#Bitcoin #Crypto"})
}

func composePriceFallback(priceLine string, changePct float64) string {
	line1 := priceLine + " " + PriceEmoji(changePct)
	return line1 + "\n#Bitcoin #Price"
}

// truncateAndJoin assembles line1 + variable + any fixed trailing lines,
// shortening only the variable line if the full message exceeds
// MaxPostLength.
func truncateAndJoin(line1, variable string, trailing []string) string {
	lines := append([]string{line1, variable}, trailing...)
	full := strings.Join(lines, "\n")
	if len(full) <= MaxPostLength {
		return full
	}

	overflow := len(full) - MaxPostLength + len("…")
	if overflow >= len(variable) {
		overflow = len(variable)
	}
	truncated := strings.TrimRight(variable[:len(variable)-overflow], " ") + "…"

	lines[1] = truncated
	return strings.Join(lines, "\n")
}
