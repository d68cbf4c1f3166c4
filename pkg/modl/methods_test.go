package modl

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVariableMethods(t *testing.T) {
	Convey("the variable-method registry", t, func() {
		set := NewMethodSet(nil)

		Convey("resolves the built-in methods and their aliases", func() {
			for _, name := range []string{"t", "trim", "u", "upcase", "upper", "d", "downcase", "i", "initcap", "s", "sentence", "r", "replace", "e", "urlencode"} {
				So(set.IsVariableMethod(name), ShouldBeTrue)
			}
			So(set.IsVariableMethod("nope"), ShouldBeFalse)
		})

		Convey("trim cuts the subject at the first occurrence of its argument", func() {
			out, ok := set.Run("t", "testing,ing")
			So(ok, ShouldBeTrue)
			So(out, ShouldEqual, "test")

			out, _ = set.Run("trim", "testing,zzz")
			So(out, ShouldEqual, "testing")
		})

		Convey("upcase and downcase fold the whole subject", func() {
			out, _ := set.Run("u", "testing")
			So(out, ShouldEqual, "TESTING")
			out, _ = set.Run("d", "TESTING")
			So(out, ShouldEqual, "testing")
		})

		Convey("initcap capitalises each word, sentence only the first", func() {
			out, _ := set.Run("i", "john smith")
			So(out, ShouldEqual, "John Smith")
			out, _ = set.Run("s", "john smith")
			So(out, ShouldEqual, "John smith")
		})

		Convey("replace substitutes every occurrence", func() {
			out, _ := set.Run("r", "banana,an,AN")
			So(out, ShouldEqual, "bANANa")
		})

		Convey("urlencode escapes query characters", func() {
			out, _ := set.Run("e", "a b&c")
			So(out, ShouldEqual, "a+b%26c")
		})

		Convey("unknown methods report their absence", func() {
			out, ok := set.Run("nope", "x")
			So(ok, ShouldBeFalse)
			So(out, ShouldEqual, "x")
		})

		Convey("seeded methods overlay the global registry", func() {
			seeded := NewMethodSet(map[string]VariableMethod{
				"shout": MethodFunc(func(in string) string { return in + "!" }),
			})
			So(seeded.IsVariableMethod("shout"), ShouldBeTrue)
			out, ok := seeded.Run("shout", "hey")
			So(ok, ShouldBeTrue)
			So(out, ShouldEqual, "hey!")
		})

		Convey("chain methods apply their elements in order", func() {
			chain := chainMethod{set: set, chain: []string{"u", "trim(ING)"}}
			So(chain.Run("testing"), ShouldEqual, "TEST")
		})
	})
}
