// Package style turns a loose, user-supplied style configuration into a
// fully resolved [Sheet].
//
// A [Config] is a flat map of keys such as "bodySize" or "bgColor", as it
// arrives from a TOML/JSON/YAML file or an HTTP request body. [Resolve]
// never fails: missing, malformed and out-of-range values fall back to
// their defaults or are clamped into range, so a renderer can read any
// field of the sheet without checking it.
//
//	sheet := style.Resolve(style.Config{"bodySize": 40, "fontFamily": "georgia"}, style.DefaultCanvas())
//	fmt.Println(sheet.Paragraph.Size, sheet.FontFamily) // 40 Georgia, serif
//
// Resolving is idempotent: Resolve(sheet.Config(), canvas) yields sheet.
package style
