package archive

import (
	"encoding/json"
	"time"
)

// Document is the denormalized copy of a result written to the blob store.
type Document struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	TestType    string         `json:"testType"`
	TestID      string         `json:"testId"`
	CompletedAt time.Time      `json:"completedAt"`
	Status      string         `json:"status"`
	Score       *float64       `json:"score,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ArchivedAt  time.Time      `json:"archivedAt"`
}

func (d Document) Key() Key {
	return Key{UserID: d.UserID, TestType: d.TestType, TestID: d.TestID, ID: d.ID}
}

func Encode(d Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func Decode(data []byte) (Document, error) {
	var d Document
	err := json.Unmarshal(data, &d)
	return d, err
}
