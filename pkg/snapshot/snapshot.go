// Package snapshot renders transaction manager diagnostics as BSON
// (bson.D over bson.Marshal/Unmarshal), so an operator can pipe a dump
// through any BSON/JSON tool already in their kit.
package snapshot

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TxnRecord is one transaction's diagnostic projection: enough to explain
// why a commit conflicted or why a transaction is still pinning the
// recent-commit list, without exposing the internal read/write sets
// themselves.
type TxnRecord struct {
	ID               uint64
	ReadOnly         bool
	State            string
	StartSnapshotID  uint64
	CommitSnapshotID uint64
}

func (r TxnRecord) toBSON() bson.D {
	return bson.D{
		{Key: "id", Value: r.ID},
		{Key: "readOnly", Value: r.ReadOnly},
		{Key: "state", Value: r.State},
		{Key: "startSnapshotId", Value: r.StartSnapshotID},
		{Key: "commitSnapshotId", Value: r.CommitSnapshotID},
	}
}

// State is a point-in-time dump of a manager's bookkeeping.
type State struct {
	GeneratedAt    time.Time
	NextTxnID      uint64
	NextSnap       uint64
	MinActiveStart uint64
	Active         []TxnRecord
	Recent         []TxnRecord
}

// ToBSON renders s as a bson.D document.
func ToBSON(s State) bson.D {
	active := make(bson.A, 0, len(s.Active))
	for _, t := range s.Active {
		active = append(active, t.toBSON())
	}
	recent := make(bson.A, 0, len(s.Recent))
	for _, t := range s.Recent {
		recent = append(recent, t.toBSON())
	}
	return bson.D{
		{Key: "generatedAt", Value: s.GeneratedAt},
		{Key: "nextTxnId", Value: s.NextTxnID},
		{Key: "nextSnap", Value: s.NextSnap},
		{Key: "minActiveStart", Value: s.MinActiveStart},
		{Key: "active", Value: active},
		{Key: "recent", Value: recent},
	}
}

// Marshal renders s as BSON bytes.
func Marshal(s State) ([]byte, error) {
	data, err := bson.Marshal(ToBSON(s))
	if err != nil {
		return nil, fmt.Errorf("marshal manager snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal parses BSON bytes produced by Marshal back into a State.
func Unmarshal(data []byte) (State, error) {
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return State{}, fmt.Errorf("unmarshal manager snapshot: %w", err)
	}

	var s State
	for _, e := range doc {
		switch e.Key {
		case "generatedAt":
			switch t := e.Value.(type) {
			case time.Time:
				s.GeneratedAt = t
			case bson.DateTime:
				s.GeneratedAt = t.Time()
			}
		case "nextTxnId":
			s.NextTxnID = toUint64(e.Value)
		case "nextSnap":
			s.NextSnap = toUint64(e.Value)
		case "minActiveStart":
			s.MinActiveStart = toUint64(e.Value)
		case "active":
			s.Active = toTxnRecords(e.Value)
		case "recent":
			s.Recent = toTxnRecords(e.Value)
		}
	}
	return s, nil
}

func toTxnRecords(v interface{}) []TxnRecord {
	arr, ok := v.(bson.A)
	if !ok {
		return nil
	}
	out := make([]TxnRecord, 0, len(arr))
	for _, item := range arr {
		sub, ok := item.(bson.D)
		if !ok {
			continue
		}
		var r TxnRecord
		for _, e := range sub {
			switch e.Key {
			case "id":
				r.ID = toUint64(e.Value)
			case "readOnly":
				if b, ok := e.Value.(bool); ok {
					r.ReadOnly = b
				}
			case "state":
				if str, ok := e.Value.(string); ok {
					r.State = str
				}
			case "startSnapshotId":
				r.StartSnapshotID = toUint64(e.Value)
			case "commitSnapshotId":
				r.CommitSnapshotID = toUint64(e.Value)
			}
		}
		out = append(out, r)
	}
	return out
}

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	case int32:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}
