package scenario

import (
	"fmt"
	"strings"

	"github.com/NigeWarren/dotty/internal/resolve"
)

// Expectation renders an outcome in expectation syntax:
//
//	resolved <witness>
//	ambiguous <ref>, <ref>
//	not-found
//	divergent
func Expectation(out resolve.Outcome) string {
	switch o := out.(type) {
	case *resolve.Resolved:
		return "resolved " + o.Witness.String()
	case *resolve.Ambiguous:
		return o.String()
	case *resolve.NotFound:
		return resolve.KindNotFound.String()
	case *resolve.DivergentSearch:
		return resolve.KindDivergent.String()
	default:
		panic(fmt.Sprintf("scenario: unexpected outcome %T", out))
	}
}

// Matches reports whether out satisfies expect. Whitespace is not
// significant, and an expectation naming only the kind ("resolved",
// "ambiguous") accepts any outcome of that kind.
func Matches(expect string, out resolve.Outcome) bool {
	want := normalize(expect)
	if want == out.Kind().String() {
		return true
	}
	return want == normalize(Expectation(out))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
