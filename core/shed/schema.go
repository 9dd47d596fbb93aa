package shed

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// keySchema is the fixed LevelDB key under which the schema of all
	// fields and indexes is stored.
	keySchema = []byte{0}
	// keyPrefixFields is the prefix of LevelDB keys for all field values.
	keyPrefixFields byte = 1
	// keyPrefixIndexStart is the first LevelDB key prefix available for
	// index encoding. Lower prefixes are reserved.
	keyPrefixIndexStart byte = 2
)

// schema is used to serialize known database structure information.
type schema struct {
	Fields  map[string]fieldSpec `json:"fields"`
	Indexes map[byte]indexSpec   `json:"indexes"`
}

// fieldSpec holds information about a particular field.
// It does not need Name field as it is contained in the
// schema.Field map key.
type fieldSpec struct {
	Type string `json:"type"`
}

// indexSpec holds information about a particular index.
// It does not contain index type, as indexes do not have type.
type indexSpec struct {
	Name string `json:"name"`
}

// schemaFieldKey retrieves the complete LevelDB key for
// a particular field form the schema definition.
func (db *DB) schemaFieldKey(name, fieldType string) (key []byte, err error) {
	if name == "" {
		return nil, errors.New("field name cannot be blank")
	}
	if fieldType == "" {
		return nil, errors.New("field type cannot be blank")
	}
	s, err := db.getSchema()
	if err != nil {
		return nil, err
	}
	var found bool
	for n, f := range s.Fields {
		if n == name {
			if f.Type != fieldType {
				return nil, fmt.Errorf("field %q of type %q stored as %q in db", name, fieldType, f.Type)
			}
			found = true
			break
		}
	}
	if !found {
		s.Fields[name] = fieldSpec{
			Type: fieldType,
		}
		if err := db.putSchema(s); err != nil {
			return nil, err
		}
	}
	return append([]byte{keyPrefixFields}, []byte(name)...), nil
}

// schemaIndexPrefix retrieves the complete LevelDB prefix for
// a particular index.
func (db *DB) schemaIndexPrefix(name string) (id byte, err error) {
	if name == "" {
		return 0, errors.New("index name cannot be blank")
	}
	s, err := db.getSchema()
	if err != nil {
		return 0, err
	}
	nextID := keyPrefixIndexStart
	for i, f := range s.Indexes {
		if i >= nextID {
			nextID = i + 1
		}
		if f.Name == name {
			return i, nil
		}
	}
	id = nextID
	s.Indexes[id] = indexSpec{
		Name: name,
	}
	if err := db.putSchema(s); err != nil {
		return 0, err
	}
	return id, nil
}

// getSchema retrieves the complete schema from the database.
func (db *DB) getSchema() (s schema, err error) {
	b, err := db.Get(keySchema)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}

// putSchema stores the complete schema to the database.
func (db *DB) putSchema(s schema) (err error) {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return db.Put(keySchema, b)
}
