package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const EVENT_TERCC = "EiffelTestExecutionRecipeCollectionCreatedEvent"

const VERSION_TERCC = "4.0.0"

// Meta of Eiffel event
type Meta struct {
	// Unique identity of event, it becomes the identity of the test suite
	ID string `json:"id"`

	// Type of Eiffel event (e.g. EiffelTestExecutionRecipeCollectionCreatedEvent)
	Type string `json:"type"`

	Version string `json:"version,omitempty"`

	// Creation time, milliseconds since epoch
	Time int64 `json:"time,omitempty"`
}

// Link to other Eiffel event
type Link struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// Test Execution Recipe Collection Created event (TERCC), it declares
// the collection of test suites to execute.
//
// The original document is kept as-is. It is handed over to the suite runner
// without re-encoding.
type TERCC struct {
	Meta  Meta            `json:"meta"`
	Data  json.RawMessage `json:"data,omitempty"`
	Links []Link          `json:"links,omitempty"`

	raw json.RawMessage
}

type tercc TERCC

// NewTERCC creates a fresh event with unique identity
func NewTERCC(data json.RawMessage, links ...Link) *TERCC {
	return &TERCC{
		Meta: Meta{
			ID:      uuid.NewString(),
			Type:    EVENT_TERCC,
			Version: VERSION_TERCC,
			Time:    time.Now().UnixMilli(),
		},
		Data:  data,
		Links: links,
	}
}

// Decode TERCC from the wire format
func Decode(b []byte) (*TERCC, error) {
	var evt TERCC
	if err := json.Unmarshal(b, &evt); err != nil {
		return nil, err
	}

	if err := evt.Validate(); err != nil {
		return nil, err
	}

	return &evt, nil
}

// Validate checks the event is TERCC with identity
func (evt *TERCC) Validate() error {
	if evt.Meta.Type != "" && evt.Meta.Type != EVENT_TERCC {
		return fmt.Errorf("unexpected event type %q", evt.Meta.Type)
	}

	if evt.Meta.ID == "" {
		return fmt.Errorf("event identity is not defined")
	}

	return nil
}

func (evt *TERCC) UnmarshalJSON(b []byte) error {
	var val tercc
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}

	*evt = TERCC(val)
	evt.raw = append(json.RawMessage(nil), b...)

	return nil
}

func (evt TERCC) MarshalJSON() ([]byte, error) {
	if len(evt.raw) != 0 {
		return evt.raw, nil
	}

	return json.Marshal(tercc(evt))
}

// ID of the event
func (evt *TERCC) ID() string {
	if evt == nil {
		return ""
	}
	return evt.Meta.ID
}

// JSON returns the serialized event, as it has been received
func (evt *TERCC) JSON() (string, error) {
	if evt == nil {
		return "", nil
	}

	b, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
