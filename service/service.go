package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elvinchan/dbfixture"
	"go.mongodb.org/mongo-driver/bson"
)

const FixtureServiceName = "Fixture"

const (
	FailureTruncate = "truncate"
	FailureInsert   = "insert"
)

type TruncateRequest struct {
	Collections []string `json:"collections"`
}

// InsertFixturesRequest carries every document as canonical extended
// JSON, plain JSON would turn integers into floats and lose BSON types.
type InsertFixturesRequest struct {
	Collection string            `json:"collection"`
	Documents  []json.RawMessage `json:"documents"`
}

func EncodeDocuments(docs []interface{}) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(docs))
	for i, doc := range docs {
		b, err := bson.MarshalExtJSON(doc, true, false)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %v",
				dbfixture.ErrInvalidDocument, i, err)
		}
		raws = append(raws, b)
	}
	return raws, nil
}

// DecodeDocuments reverses EncodeDocuments. Top level documents come back
// as map[string]interface{}, nested ones as bson.M.
func DecodeDocuments(raws []json.RawMessage) ([]interface{}, error) {
	docs := make([]interface{}, 0, len(raws))
	for i, raw := range raws {
		var m bson.M
		if err := bson.UnmarshalExtJSON(raw, true, &m); err != nil {
			return nil, fmt.Errorf("%w: document %d: %v",
				dbfixture.ErrInvalidDocument, i, err)
		}
		docs = append(docs, map[string]interface{}(m))
	}
	return docs, nil
}

// Failure carries an unacknowledged operation across the wire, so the
// client can hand back the same typed error the driver produced.
type Failure struct {
	Kind       string `json:"kind"`
	Collection string `json:"collection"`
	Count      int64  `json:"count"`
}

type Response struct {
	Failure *Failure `json:"failure,omitempty"`
}

type FixtureInterface interface {
	Truncate(req TruncateRequest, resp *Response) error
	InsertFixtures(req InsertFixturesRequest, resp *Response) error
}

// NewFailure returns the Failure for err, or nil when err is not an
// acknowledgment failure.
func NewFailure(err error) *Failure {
	var te *dbfixture.TruncationError
	if errors.As(err, &te) {
		return &Failure{
			Kind:       FailureTruncate,
			Collection: te.Collection,
			Count:      te.Deleted,
		}
	}
	var fe *dbfixture.FixtureInsertionError
	if errors.As(err, &fe) {
		return &Failure{
			Kind:       FailureInsert,
			Collection: fe.Collection,
			Count:      fe.Inserted,
		}
	}
	return nil
}

func (f *Failure) Err() error {
	if f == nil {
		return nil
	}
	switch f.Kind {
	case FailureTruncate:
		return &dbfixture.TruncationError{
			Collection: f.Collection,
			Deleted:    f.Count,
		}
	case FailureInsert:
		return &dbfixture.FixtureInsertionError{
			Collection: f.Collection,
			Inserted:   f.Count,
		}
	}
	return errors.New("unknown failure kind: " + f.Kind)
}

// FixtureClient is a dbfixture.Driver backed by a remote FixtureService.
// Close only closes the client connection, the remote driver stays open.
type FixtureClient struct {
	rpcClient
}

func (c *FixtureClient) Truncate(collections []string) error {
	if len(collections) == 0 {
		return nil
	}
	req := TruncateRequest{
		Collections: collections,
	}
	var resp Response
	if err := c.doCall(FixtureServiceName+".Truncate", req, &resp); err != nil {
		return err
	}
	return resp.Failure.Err()
}

func (c *FixtureClient) InsertFixtures(collection string, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	raws, err := EncodeDocuments(docs)
	if err != nil {
		return err
	}
	req := InsertFixturesRequest{
		Collection: collection,
		Documents:  raws,
	}
	var resp Response
	if err := c.doCall(FixtureServiceName+".InsertFixtures", req, &resp); err != nil {
		return err
	}
	return resp.Failure.Err()
}

func (c *FixtureClient) Close() error {
	return c.close()
}
