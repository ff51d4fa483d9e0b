package language

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Language is a target programming language identifier as sent in the
// programming_language form field.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Cpp        Language = "cpp"
	CSharp     Language = "csharp"
	Go         Language = "go"
)

const Default = Python

var ErrUnsupported = errors.New("unsupported language")

// order is the display order of the selector.
var order = []Language{Python, JavaScript, TypeScript, Java, Cpp, CSharp, Go}

var labels = map[Language]string{
	Python:     "Python",
	JavaScript: "JavaScript",
	TypeScript: "TypeScript",
	Java:       "Java",
	Cpp:        "C++",
	CSharp:     "C#",
	Go:         "Go",
}

var aliases = map[string]Language{
	"py":     Python,
	"js":     JavaScript,
	"node":   JavaScript,
	"ts":     TypeScript,
	"c++":    Cpp,
	"cxx":    Cpp,
	"c#":     CSharp,
	"cs":     CSharp,
	"golang": Go,
}

// All returns the supported languages in display order.
func All() []Language {
	return append([]Language(nil), order...)
}

// IDs returns the identifiers of All as plain strings.
func IDs() []string {
	return lo.Map(order, func(l Language, _ int) string { return string(l) })
}

// Parse resolves an identifier or a common alias, ignoring case.
func Parse(s string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if l := Language(key); lo.Contains(order, l) {
		return l, nil
	}
	if l, ok := aliases[key]; ok {
		return l, nil
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupported, s, strings.Join(IDs(), ", "))
}

func (l Language) Valid() bool {
	return lo.Contains(order, l)
}

func (l Language) Label() string {
	if label, ok := labels[l]; ok {
		return label
	}
	return string(l)
}

// Index is the position of l in All, or -1.
func (l Language) Index() int {
	return lo.IndexOf(order, l)
}

func (l Language) String() string {
	return string(l)
}
