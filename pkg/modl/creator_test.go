package modl

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/MODLanguage/modl-go/pkg/modl/parser"
)

func lowerText(input string) *Document {
	tree, err := parser.Parse(input)
	So(err, ShouldBeNil)
	return Lower(tree)
}

func TestLower(t *testing.T) {
	Convey("lowering a parse tree", t, func() {
		Convey("a nil tree lowers to an empty document", func() {
			So(Lower(nil).Structures, ShouldBeEmpty)
		})

		Convey("folds literals into their value variants", func() {
			doc := lowerText("a=1; b=x; c=true; d=null")
			So(len(doc.Structures), ShouldEqual, 4)
			So(doc.Structures[0].(*Pair).Value, ShouldResemble, IntNumber(1))
			So(doc.Structures[1].(*Pair).Value, ShouldResemble, String("x"))
			So(doc.Structures[2].(*Pair).Value, ShouldResemble, Bool(true))
			So(doc.Structures[3].(*Pair).Value, ShouldResemble, Null{})
		})

		Convey("a bare key lowers to a null-valued pair", func() {
			doc := lowerText("flag")
			So(doc.Structures[0].(*Pair).Value, ShouldResemble, Null{})
		})

		Convey("naked-array empty slots lower to explicit nulls", func() {
			doc := lowerText("a=1:2:::3")
			arr := doc.Structures[0].(*Pair).Value.(*Array)
			So(arr.Len(), ShouldEqual, 5)
			So(arr.ChildByIndex(2), ShouldResemble, Null{})
			So(arr.ChildByIndex(3), ShouldResemble, Null{})
		})

		Convey("an import with an array value fans out into single imports", func() {
			doc := lowerText("*I=[first;second]")
			So(len(doc.Structures), ShouldEqual, 2)
			So(doc.Structures[0].(*Pair).Key, ShouldEqual, "*I")
			So(doc.Structures[0].(*Pair).Value, ShouldResemble, String("first"))
			So(doc.Structures[1].(*Pair).Value, ShouldResemble, String("second"))
		})

		Convey("map conditionals keep their position among pairs", func() {
			doc := lowerText("m(a=1;{x=1 ? b=2};c=3)")
			m := doc.Structures[0].(*Pair).Value.(*Map)
			So(m.Len(), ShouldEqual, 3)
			_, isCond := m.ChildByIndex(1).(*MapConditional)
			So(isCond, ShouldBeTrue)
		})

		Convey("value conditionals lower with tests and default clauses", func() {
			doc := lowerText("y={x=1 ? yes /? no}")
			cond := doc.Structures[0].(*Pair).Value.(*ValueConditional)
			So(len(cond.Clauses), ShouldEqual, 2)
			So(cond.Clauses[0].Test, ShouldNotBeNil)
			So(cond.Clauses[1].Test, ShouldBeNil)
			So(cond.Clauses[1].Values[0], ShouldResemble, String("no"))
		})

		Convey("top-level conditionals lower to their structural variant", func() {
			doc := lowerText("{x=1 ? a=1 /? a=2}")
			_, ok := doc.Structures[0].(*TopLevelConditional)
			So(ok, ShouldBeTrue)
		})
	})
}
