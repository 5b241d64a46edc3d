package vars

import (
	"strings"
	"unicode"

	"github.com/coregx/coregex"

	"decaf/internal/types"
)

var (
	nonIdent   = coregex.MustCompile(`[^A-Za-z0-9_$]+`)
	leadDigits = coregex.MustCompile(`^[0-9]+`)
)

var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true,
}

// IsKeyword reports whether s is reserved in Java source.
func IsKeyword(s string) bool { return keywords[s] }

// Sanitize turns s into a legal Java identifier.
func Sanitize(s string) string {
	s = nonIdent.ReplaceAllString(s, "_")
	if leadDigits.MatchString(s) {
		s = "_" + s
	}
	if s == "" {
		return "v"
	}
	if keywords[s] {
		return s + "_"
	}
	return s
}

var primNames = map[types.Kind]string{
	types.Boolean: "flag",
	types.Char:    "c",
	types.Byte:    "b",
	types.Short:   "s",
	types.Int:     "i",
	types.Long:    "l",
	types.Float:   "f",
	types.Double:  "d",
}

// NameFor derives a variable name from its type.
func NameFor(t *types.T) string {
	if t == nil {
		return "obj"
	}
	if t.IsPrim() {
		if n, ok := primNames[t.Kinds().Preferred()]; ok {
			return n
		}
		return "v"
	}
	switch t.Sort() {
	case types.SortArray:
		return "arr"
	case types.SortVar:
		return strings.ToLower(Sanitize(t.Name()))
	case types.SortNull:
		return "obj"
	}
	switch t.Raw().Name() {
	case types.ObjectName:
		return "obj"
	case types.StringName:
		return "str"
	case types.ClassName:
		return "cls"
	}
	simple := t.Raw().SimpleName()
	if i := strings.LastIndexByte(simple, '$'); i >= 0 {
		simple = simple[i+1:]
	}
	if strings.HasSuffix(simple, "Exception") || strings.HasSuffix(simple, "Error") || simple == "Throwable" {
		return "e"
	}
	if simple == "" || unicode.IsDigit(rune(simple[0])) {
		return "obj"
	}
	return Sanitize(lowerFirst(simple))
}

// lowerFirst lowercases the leading capital run: "URLConnection" becomes
// "urlConnection".
func lowerFirst(s string) string {
	r := []rune(s)
	for i := 0; i < len(r) && unicode.IsUpper(r[i]); i++ {
		if i > 0 && i+1 < len(r) && unicode.IsLower(r[i+1]) {
			break
		}
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
