package shopifyapi

import (
	"net/url"
	"strings"
)

// NextPageInfo extracts the page_info cursor of the rel="next" link, "" on the last page.
//
//	<https://shop.myshopify.com/admin/api/2024-01/orders.json?limit=250&page_info=abc>; rel="next"
func NextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		isNext := false
		for _, s := range segments[1:] {
			if strings.TrimSpace(s) == `rel="next"` {
				isNext = true
			}
		}
		if !isNext {
			continue
		}
		raw := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return u.Query().Get("page_info")
	}
	return ""
}
