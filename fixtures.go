package dbfixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gopkg.in/yaml.v3"
)

var ErrInvalidFixtureFile = errors.New("invalid fixture file")

// Fixtures is the set of documents destined for one collection.
type Fixtures struct {
	Collection string
	Documents  []interface{}
}

// Set is an ordered list of fixtures, usually loaded from a file.
type Set []Fixtures

func (s Set) Collections() []string {
	names := make([]string, 0, len(s))
	for _, f := range s {
		names = append(names, f.Collection)
	}
	return names
}

// Apply truncates every collection of the set, then inserts the fixtures
// in order. It stops at the first error and does not undo earlier steps.
func Apply(d Driver, s Set) error {
	if err := d.Truncate(s.Collections()); err != nil {
		return err
	}
	for _, f := range s {
		if err := d.InsertFixtures(f.Collection, f.Documents); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a fixture file, see Decode.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a fixture file mapping collection names to lists of
// documents:
//
//	users:
//	  - name: alice
//	  - name: bob
//	roles: []
//
// A YAML stream may hold several documents; their collections are
// concatenated. Input that is a JSON object is read as MongoDB extended
// JSON, so {"$oid": ...} and {"$date": ...} values keep their BSON types.
// Collections keep the order they appear in.
func Decode(r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 &&
		trimmed[0] == '{' && json.Valid(trimmed) {
		return decodeExtJSON(trimmed)
	}
	return decodeYAML(data)
}

func decodeExtJSON(data []byte) (Set, error) {
	var raw bson.Raw
	if err := bson.UnmarshalExtJSON(data, false, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixtureFile, err)
	}
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixtureFile, err)
	}
	set := make(Set, 0, len(elems))
	for _, elem := range elems {
		name, value := elem.Key(), elem.Value()
		if name == "" {
			return nil, fmt.Errorf("%w: empty collection name", ErrInvalidFixtureFile)
		}
		if value.Type != bsontype.Array {
			return nil, fmt.Errorf("%w: %q must be a list of documents",
				ErrInvalidFixtureFile, name)
		}
		var ms []bson.M
		if err := value.Unmarshal(&ms); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFixtureFile, name, err)
		}
		docs := make([]interface{}, 0, len(ms))
		for _, m := range ms {
			docs = append(docs, map[string]interface{}(m))
		}
		set = append(set, Fixtures{Collection: name, Documents: docs})
	}
	return set, nil
}

func decodeYAML(data []byte) (Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	set := Set{}
	for {
		var root yaml.Node
		if err := dec.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				return set, nil
			}
			return nil, err
		}
		part, err := setFromNode(&root)
		if err != nil {
			return nil, err
		}
		set = append(set, part...)
	}
}

func setFromNode(doc *yaml.Node) (Set, error) {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, nil
		}
		doc = doc.Content[0]
	}
	if doc.Kind == yaml.ScalarNode && doc.Tag == "!!null" {
		return nil, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping of collections",
			ErrInvalidFixtureFile)
	}
	set := make(Set, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name, list := doc.Content[i].Value, doc.Content[i+1]
		if name == "" {
			return nil, fmt.Errorf("%w: empty collection name (line %d)",
				ErrInvalidFixtureFile, doc.Content[i].Line)
		}
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: %q must be a list of documents",
				ErrInvalidFixtureFile, name)
		}
		docs := make([]interface{}, 0, len(list.Content))
		for _, item := range list.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: %q line %d: document must be a mapping",
					ErrInvalidFixtureFile, name, item.Line)
			}
			var m map[string]interface{}
			if err := item.Decode(&m); err != nil {
				return nil, fmt.Errorf("%w: %q line %d: %v",
					ErrInvalidFixtureFile, name, item.Line, err)
			}
			docs = append(docs, m)
		}
		set = append(set, Fixtures{Collection: name, Documents: docs})
	}
	return set, nil
}
