package modl

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestToJSON(t *testing.T) {
	toJSON := func(input string) (string, error) {
		return ToJSON(input, nil)
	}

	Convey("interpreting MODL to JSON", t, func() {
		Convey("numbered variables resolve from bracketed arrays", func() {
			out, err := toJSON("?=[red;green;blue]; fav=%1")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"fav":"green"}`)
		})

		Convey("numbered variables resolve from naked arrays", func() {
			out, err := toJSON("?=red:green:blue; fav=%1")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"fav":"green"}`)
		})

		Convey("named variables resolve and stay hidden", func() {
			out, err := toJSON("_red=#f00; _green=#0f0; _blue=#00f; fav=%blue")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"fav":"#00f"}`)
		})

		Convey("boolean literals survive evaluation", func() {
			out, err := toJSON("sky_is_blue=true")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"sky_is_blue":true}`)

			out, err = toJSON("sky_is_blue=false")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"sky_is_blue":false}`)
		})

		Convey("a class renames the pairs it matches", func() {
			out, err := toJSON("*class(*id=a;*name=age);a=10")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"age":10}`)
		})

		Convey("a map-superclassed instance reshapes to a structured map", func() {
			out, err := toJSON("*class(*id=p;*name=person;*superclass=map);p(name=John Smith;dob=01/01/2000)")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"person":{"name":"John Smith","dob":"01/01/2000"}}`)
		})

		Convey("a str-superclassed instance stringifies its value", func() {
			out, err := toJSON("*class(*id=ph;*name=phone;*superclass=str);ph=441270123456")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"phone":"441270123456"}`)
		})

		Convey("inherited pair defaults union into instances", func() {
			out, err := toJSON("*class(*id=pt;*name=point;*superclass=map;z=0);pt(x=1;y=2)")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"point":{"x":1,"y":2,"z":0}}`)
		})

		Convey("positional parameters pair up against *paramsN", func() {
			out, err := toJSON("*class(*id=n;*name=name;*superclass=map;*params2=[first;last]);n=[John;Smith]")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"name":{"first":"John","last":"Smith"}}`)
		})

		Convey("an unrecognised *-instruction is fatal", func() {
			_, err := toJSON("*blah=hello")
			So(err, ShouldNotBeNil)
			So(GetErrorType(err), ShouldEqual, UnrecognisedInstructionError)
		})

		Convey("empty input produces empty output", func() {
			out, err := toJSON("")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{}`)
		})

		Convey("plain structures pass through structurally", func() {
			out, err := toJSON("a=hello; b=123; c=(x=1;y=[1;2;3])")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"a":"hello","b":123,"c":{"x":1,"y":[1,2,3]}}`)
		})

		Convey("consecutive naked-array separators produce explicit nulls", func() {
			out, err := toJSON("a=1:2:::3")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"a":[1,2,null,null,3]}`)
		})

		Convey("a missing reference subject survives literally in a composite", func() {
			out, err := toJSON("msg=hello %nope world")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"msg":"hello %nope world"}`)
		})

		Convey("a bare reference to a map pulls the map in verbatim", func() {
			out, err := toJSON("_cfg=(host=localhost;port=8080); server=%cfg")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"server":{"host":"localhost","port":8080}}`)
		})

		Convey("nested reference paths descend through containers", func() {
			out, err := toJSON("_cfg=(net=(port=8080)); p=%cfg>net>port")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"p":8080}`)
		})

		Convey("an invalid nested segment in a standalone reference is fatal", func() {
			_, err := toJSON("_cfg=(x=1); p=%cfg>zzz")
			So(err, ShouldNotBeNil)
			So(GetErrorType(err), ShouldEqual, InvalidReferenceError)
		})

		Convey("version directives", func() {
			Convey("a matching *VERSION is a no-op", func() {
				out, err := toJSON("*VERSION=1; a=1")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"a":1}`)
			})

			Convey("a mismatched *V is fatal", func() {
				_, err := toJSON("*V=99; a=1")
				So(GetErrorType(err), ShouldEqual, VersionMismatchError)
			})
		})

		Convey("upper-case-only keys are immutable", func() {
			_, err := toJSON("NAME=first; NAME=second")
			So(GetErrorType(err), ShouldEqual, ImmutableRedefinitionError)
		})

		Convey("lower-case duplicate map keys augment the existing pair", func() {
			out, err := toJSON("m(a=1;a=2)")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"m":{"a":[1,2]}}`)
		})

		Convey("upper-case duplicate map keys are fatal", func() {
			_, err := toJSON("m(A=1;A=2)")
			So(GetErrorType(err), ShouldEqual, ImmutableRedefinitionError)
		})

		Convey("hidden keys never reach the output", func() {
			out, err := toJSON("_hidden=1; visible=2; m(_x=3;y=4)")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"visible":2,"m":{"y":4}}`)
		})

		Convey("user-defined *method directives register chains", func() {
			out, err := toJSON("*method(*id=shout;*transform=u.sentence);_v=testing; loud=%v.shout")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, `{"loud":"TESTING"}`)
		})

		Convey("conditionals", func() {
			Convey("value conditionals pick the first matching branch", func() {
				out, err := toJSON("x=1; y={x=1 ? yes /? no}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"x":1,"y":"yes"}`)

				out, err = toJSON("x=2; y={x=1 ? yes /? no}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"x":2,"y":"no"}`)
			})

			Convey("membership lists match any value", func() {
				out, err := toJSON("country=us; eu={country=gb|fr|de ? yes /? no}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"country":"us","eu":"no"}`)
			})

			Convey("'&' and '|' fold left to right, groups bind tighter", func() {
				out, err := toJSON("a=1; b=2; y={a=1 & b=2 ? both /? not}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"a":1,"b":2,"y":"both"}`)

				out, err = toJSON("a=1; b=3; y={a=2 | (a=1 & b=3) ? yes /? no}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"a":1,"b":3,"y":"yes"}`)
			})

			Convey("negation flips an atom", func() {
				out, err := toJSON("a=1; y={!a=2 ? yes /? no}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"a":1,"y":"yes"}`)
			})

			Convey("relational operators compare numerically", func() {
				out, err := toJSON("n=15; y={n>=10 ? big /? small}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"n":15,"y":"big"}`)
			})

			Convey("bare atoms test truthiness", func() {
				out, err := toJSON("flag=true; y={flag ? on /? off}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"flag":true,"y":"on"}`)
			})

			Convey("no match and no default leaves the pair's value null", func() {
				out, err := toJSON("x=5; y={x=1 ? yes}; z=1")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"x":5,"y":null,"z":1}`)
			})

			Convey("top-level conditionals contribute whole structures", func() {
				out, err := toJSON("x=1; {x=1 ? a=10; b=20 /? a=0}")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"x":1,"a":10,"b":20}`)
			})

			Convey("map conditionals contribute pairs in place", func() {
				out, err := toJSON("x=1; m(a=1;{x=1 ? b=2 /? b=3})")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"x":1,"m":{"a":1,"b":2}}`)
			})

			Convey("array conditionals contribute items in place", func() {
				out, err := toJSON("x=1; a=[1;{x=1 ? 2 /? 9};3]")
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"x":1,"a":[1,2,3]}`)
			})
		})

		Convey("imports", func() {
			loaderFor := func(files map[string]string) Loader {
				return func(location string) (string, error) {
					if text, ok := files[location]; ok {
						return text, nil
					}
					return "", errors.New("no such resource: " + location)
				}
			}

			Convey("an import restarts the pass against the loaded tree", func() {
				opts := &Options{Loader: loaderFor(map[string]string{"base": "a=1; b=2"})}
				out, err := ToJSON("*I=base", opts)
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"a":1,"b":2}`)
			})

			Convey("the import location may itself hold a reference", func() {
				opts := &Options{Loader: loaderFor(map[string]string{"prod": "env=production"})}
				out, err := ToJSON("_stage=prod; *IMPORT=%stage", opts)
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"env":"production"}`)
			})

			Convey("loader failures abort the pass", func() {
				opts := &Options{Loader: loaderFor(nil)}
				_, err := ToJSON("*I=missing", opts)
				So(GetErrorType(err), ShouldEqual, LoadError)
			})

			Convey("import cycles hit the restart cap", func() {
				opts := &Options{
					MaxRestarts: 3,
					Loader:      loaderFor(map[string]string{"self": "*I=self"}),
				}
				_, err := ToJSON("*I=self", opts)
				So(GetErrorType(err), ShouldEqual, ImportLimitExceededError)
			})
		})
	})
}
