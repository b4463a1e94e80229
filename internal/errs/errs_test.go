package errs_test

import (
	"errors"
	"testing"

	"github.com/okian/speedcube/internal/errs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given a wrapped storage failure", t, func() {
		cause := errors.New("disk full")
		err := errs.WrapKind("repository.save", errs.ErrStorage, cause)

		Convey("Then both the kind and the cause are visible", func() {
			So(errors.Is(err, errs.ErrStorage), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "repository.save: storage error: disk full")
		})

		Convey("And re-wrapping keeps the kind", func() {
			outer := errs.Wrap("app.submit", err)
			So(errs.KindOf(outer), ShouldEqual, errs.ErrStorage)
			var e *errs.Error
			So(errors.As(outer, &e), ShouldBeTrue)
			So(e.Op, ShouldEqual, "app.submit")
		})
	})

	Convey("Given nil causes", t, func() {
		So(errs.Wrap("op", nil), ShouldBeNil)
		So(errs.WrapKind("op", errs.ErrFormat, nil), ShouldBeNil)
	})

	Convey("Given a bare kind", t, func() {
		err := errs.NewKind("app.open", errs.ErrNotFound)
		So(err.Error(), ShouldEqual, "app.open: not found")
		So(errs.KindOf(err), ShouldEqual, errs.ErrNotFound)
		So(errs.KindOf(errors.New("other")), ShouldBeNil)
	})
}
