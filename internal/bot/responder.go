package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-line-agent/internal/ai"
	"github.com/tbourn/go-line-agent/internal/domain"
)

// User-facing message literals. These are product copy, kept verbatim; the
// status-query trigger itself is configuration, not a constant here.
const (
	statusReportHeader = "您好，以下是您的貨物狀況：\n\n"
	noPackagesReply    = "您目前沒有進行中的包裹"

	searchHeader   = "以下是您可能感興趣的商品：\n\n"
	noResultsReply = "抱歉，目前沒有找到符合的商品。您可以試試其他關鍵字。"

	apologySystem = "抱歉，系統暫時無法處理您的請求，請稍後再試。"
	apologyStore  = "抱歉，處理您的訊息時發生錯誤，請稍後再試。"

	welcomeTemplate = "Hi %s！歡迎加入！😊\n\n" +
		"我是您的智能助理，可以協助您：\n" +
		"1️⃣ 查詢商品狀態（輸入「貨物狀況」）\n" +
		"2️⃣ 搜尋/推薦商品\n" +
		"3️⃣ 回答您的問題\n\n" +
		"請問有什麼我可以幫您的嗎？"

	sectionSeparator = "─────────────"
	timeLayout       = "2006-01-02 15:04"

	maxSearchResults     = 5
	descriptionRuneLimit = 100
)

// formatPackageReport renders the status-query reply: one section per
// package, newest first, with timestamps in YYYY-MM-DD HH:MM. Date lines are
// omitted when the package has not progressed that far; the actual-delivery
// line appears only for delivered packages.
func formatPackageReport(pkgs []domain.Package) string {
	if len(pkgs) == 0 {
		return noPackagesReply
	}
	sections := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		var b strings.Builder
		fmt.Fprintf(&b, "📦 商品：%s\n", p.Name)
		fmt.Fprintf(&b, "📝 追蹤碼：%s\n", p.TrackingCode)
		fmt.Fprintf(&b, "📊 狀態：%s\n", p.Status)
		if p.ShippingDate != nil {
			fmt.Fprintf(&b, "🚚 出貨時間：%s\n", p.ShippingDate.Format(timeLayout))
		}
		if p.DeliveryDate != nil {
			fmt.Fprintf(&b, "📅 預計到貨：%s\n", p.DeliveryDate.Format(timeLayout))
		}
		if p.Status == domain.PackageStatusDelivered && p.ActualDeliveryDate != nil {
			fmt.Fprintf(&b, "✅ 實際到貨：%s\n", p.ActualDeliveryDate.Format(timeLayout))
		}
		b.WriteString(sectionSeparator)
		sections = append(sections, b.String())
	}
	return statusReportHeader + strings.Join(sections, "\n\n")
}

// formatSearchResults renders at most maxSearchResults products, each with
// its number, name, price, link, and a description truncated to
// descriptionRuneLimit runes.
func formatSearchResults(products []ai.Product) string {
	if len(products) > maxSearchResults {
		products = products[:maxSearchResults]
	}
	items := make([]string, 0, len(products))
	for _, p := range products {
		var b strings.Builder
		fmt.Fprintf(&b, "📦 商品編號：%s\n", p.ID)
		fmt.Fprintf(&b, "🏷️ 商品名稱：%s\n", p.Name)
		fmt.Fprintf(&b, "💰 價格：%s\n", strconv.FormatFloat(p.Price, 'f', -1, 64))
		fmt.Fprintf(&b, "🔗 商品連結：%s\n", p.URL)
		fmt.Fprintf(&b, "📝 商品描述：%s...\n", truncateRunes(p.Description, descriptionRuneLimit))
		b.WriteString(sectionSeparator)
		items = append(items, b.String())
	}
	return searchHeader + strings.Join(items, "\n\n")
}

// truncateRunes cuts s to at most n runes, never splitting a rune.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(text, s) {
			return true
		}
	}
	return false
}
