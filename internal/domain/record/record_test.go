package record_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/feedrelay/internal/domain/model"
	"github.com/okian/feedrelay/internal/domain/record"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleEvent() model.Event {
	return model.Event{
		ID:   json.Number("745322704471887900"),
		Text: "From bird flu...",
		Entities: map[string]any{
			"urls": []any{map[string]any{"url": "http://t.co/U73ua5NnQs"}},
		},
		Author: model.Author{
			Name:     "Elsevier News",
			URL:      "http://t.co/U73ua5NnQs",
			ImageURL: "https://pbs.twimg.com/profile_images/abc.png",
		},
	}
}

func TestRecordCodec(t *testing.T) {
	Convey("Given an event", t, func() {
		e := sampleEvent()

		Convey("When encoding to the flat pair sequence", func() {
			pairs := record.Pairs(e)

			Convey("Then the field order should be fixed", func() {
				So(pairs, ShouldHaveLength, 12)
				So(pairs[0], ShouldEqual, record.FieldID)
				So(pairs[2], ShouldEqual, record.FieldText)
				So(pairs[4], ShouldEqual, record.FieldEntities)
				So(pairs[6], ShouldEqual, record.FieldAuthorName)
				So(pairs[8], ShouldEqual, record.FieldAuthorURL)
				So(pairs[10], ShouldEqual, record.FieldAuthorImage)
			})

			Convey("Then the first pair should carry the raw id", func() {
				So(pairs[1], ShouldEqual, json.Number("745322704471887900"))
			})
		})

		Convey("When round-tripping through the stored string form", func() {
			s, err := record.Marshal(e)
			So(err, ShouldBeNil)

			fields, err := record.DecodeString(s)

			Convey("Then every field value should survive intact", func() {
				So(err, ShouldBeNil)
				So(fields[record.FieldID], ShouldEqual, json.Number("745322704471887900"))
				So(fields[record.FieldText], ShouldEqual, "From bird flu...")
				So(fields[record.FieldAuthorName], ShouldEqual, "Elsevier News")
				So(fields[record.FieldAuthorURL], ShouldEqual, "http://t.co/U73ua5NnQs")
				So(fields[record.FieldAuthorImage], ShouldEqual, "https://pbs.twimg.com/profile_images/abc.png")

				entities, ok := fields[record.FieldEntities].(map[string]any)
				So(ok, ShouldBeTrue)
				urls, ok := entities["urls"].([]any)
				So(ok, ShouldBeTrue)
				So(urls, ShouldHaveLength, 1)
			})

			Convey("Then the id should not lose precision to float64", func() {
				So(err, ShouldBeNil)
				id, ok := fields[record.FieldID].(json.Number)
				So(ok, ShouldBeTrue)
				So(id.String(), ShouldEqual, "745322704471887900")
			})
		})

		Convey("When round-tripping through the relay envelope", func() {
			body, err := record.MarshalEnvelope(e)
			So(err, ShouldBeNil)

			Convey("Then the body should wrap the pairs under data", func() {
				var env record.Envelope
				So(json.Unmarshal([]byte(body), &env), ShouldBeNil)
				So(env.Data, ShouldHaveLength, 12)
				So(env.Data[0], ShouldEqual, record.FieldID)
			})

			Convey("Then decoding should reproduce the field map", func() {
				fields, err := record.DecodeEnvelope(body)
				So(err, ShouldBeNil)
				So(fields[record.FieldID], ShouldEqual, json.Number("745322704471887900"))
				So(fields[record.FieldText], ShouldEqual, e.Text)
			})
		})
	})

	Convey("Given malformed inputs", t, func() {
		Convey("When decoding an odd-length pair sequence", func() {
			_, err := record.Decode([]any{"id"})

			Convey("Then it should report a malformed record", func() {
				So(err, ShouldWrap, record.ErrMalformed)
			})
		})

		Convey("When decoding pairs with a non-string field name", func() {
			_, err := record.Decode([]any{1, "x"})

			So(err, ShouldWrap, record.ErrMalformed)
		})

		Convey("When decoding an envelope that is not JSON", func() {
			_, err := record.DecodeEnvelope("{nope")

			So(err, ShouldWrap, record.ErrMalformed)
		})

		Convey("When decoding an envelope without data", func() {
			_, err := record.DecodeEnvelope(`{"other":1}`)

			So(err, ShouldWrap, record.ErrMalformed)
		})
	})
}
