package handlers

import (
	"fmt"

	html "github.com/gofiber/template/html/v2"
)

// Views loads the page templates from dir with the helpers they use.
func Views(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("money", money)
	engine.AddFunc("deref", func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	})
	return engine
}

// money formats minor currency units, e.g. 3900 -> "$39.00".
func money(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}
