package cdc

import "fmt"

// CrossRefField is the index-document property carrying the origin row's
// primary key. Registration and UI flows use it to resolve an index hit
// back to the source row, so it must survive every upsert.
const CrossRefField = "postgres_id"

// EventDocument is the decoded, converted view of an event-table change,
// ready to upsert into the search index: the property bag holds title,
// description, category, location, organizer and the human-readable
// date/time/timestamp strings, with the primary key moved out of the
// generic bag and re-attached under CrossRefField.
type EventDocument struct {
	SourceID   int64
	Properties map[string]Value
}

// BuildEventDocument converts an event envelope into an index document.
func BuildEventDocument(env Envelope, conv *Converter) (EventDocument, error) {
	props := conv.ConvertFields(env.Payload)

	idVal, ok := props["id"]
	if !ok || idVal.Kind != KindInt {
		return EventDocument{}, fmt.Errorf("event payload missing integer id")
	}

	delete(props, "id")
	props[CrossRefField] = IntValue(idVal.Int)

	return EventDocument{SourceID: idVal.Int, Properties: props}, nil
}
