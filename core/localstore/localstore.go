package localstore

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/redesblock/stash/core/codec"
	"github.com/redesblock/stash/core/logging"
	"github.com/redesblock/stash/core/shed"
	"github.com/redesblock/stash/core/storage"
)

var (
	// ErrInvalidID is returned for writes with an empty record id.
	ErrInvalidID = errors.New("localstore: invalid record id")
)

// recordOverhead approximates the per-record index bookkeeping cost
// added to the payload length by the default size function.
const recordOverhead = 64

// SizeFunc reports the stored size of one record in bytes. It is
// injectable so callers can substitute an exact serialized length or a
// cheaper approximation.
type SizeFunc func(item shed.Item) int64

func defaultSize(item shed.Item) int64 {
	return int64(len(item.ID)+len(item.Category)+len(item.Data)) + recordOverhead
}

// DB is the local record store. It keeps every record in a retrieval
// index and maintains secondary indexes for category lookup, expiry
// sweeps and the eviction ordering.
type DB struct {
	shed *shed.DB

	// retrievalDataIndex is the main record index, keyed by record id.
	retrievalDataIndex shed.Index
	// categoryIndex orders record ids within one category newest first.
	categoryIndex shed.Index
	// expirationIndex orders expiring record ids by deadline.
	expirationIndex shed.Index
	// gcIndex orders all records by eviction precedence: synced records
	// first, then lower priority, then older update time.
	gcIndex shed.Index

	// gcSize holds the persisted total size of all stored records.
	gcSize shed.Uint64Field

	schemaName shed.StringField

	capacity    int64
	compression bool
	codec       codec.Codec
	sizeOf      SizeFunc

	cache *lru.Cache

	// batchMu protects all index mutations so a read never observes a
	// half-written record.
	batchMu sync.Mutex

	metrics metrics
	logger  logging.Logger
}

// Options to configure the DB at construction.
type Options struct {
	// Capacity is the maximum total record size in bytes. Zero disables
	// eviction.
	Capacity int64
	// Compression enables the payload codec on write.
	Compression bool
	// Codec transforms payloads on write and read. Defaults to gzip.
	Codec codec.Codec
	// CacheCapacity is the number of records kept in the read cache.
	CacheCapacity int
	// SizeOf overrides the record size computation.
	SizeOf SizeFunc
}

// New opens the record store at path, runs pending schema migrations
// and validates the size accounting field.
func New(path string, o *Options, logger logging.Logger) (db *DB, err error) {
	if o == nil {
		o = new(Options)
	}
	if o.Codec == nil {
		o.Codec = codec.NewGzip()
	}
	if o.SizeOf == nil {
		o.SizeOf = defaultSize
	}
	if o.CacheCapacity == 0 {
		o.CacheCapacity = 1000
	}

	sdb, err := shed.NewDB(path, logger)
	if err != nil {
		return nil, err
	}
	db = &DB{
		shed:        sdb,
		capacity:    o.Capacity,
		compression: o.Compression,
		codec:       o.Codec,
		sizeOf:      o.SizeOf,
		metrics:     newMetrics(),
		logger:      logger,
	}
	db.cache, err = lru.New(o.CacheCapacity)
	if err != nil {
		return nil, err
	}

	db.schemaName, err = sdb.NewStringField("schema-name")
	if err != nil {
		return nil, err
	}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	db.gcSize, err = sdb.NewUint64Field("gc-size")
	if err != nil {
		return nil, err
	}

	// Index storing the record payload and all bookkeeping fields,
	// keyed by record id.
	db.retrievalDataIndex, err = sdb.NewIndex("ID->Record", shed.IndexFuncs{
		EncodeKey: func(fields shed.Item) (key []byte, err error) {
			return fields.ID, nil
		},
		DecodeKey: func(key []byte) (e shed.Item, err error) {
			e.ID = key
			return e, nil
		},
		EncodeValue: encodeRecordValue,
		DecodeValue: decodeRecordValue,
	})
	if err != nil {
		return nil, err
	}

	// Index ordering records within one category, newest first. The
	// update timestamp is stored inverted so that a plain ascending
	// LevelDB iteration yields descending recency.
	db.categoryIndex, err = sdb.NewIndex("Category|InvUpdatedAt|ID->nil", shed.IndexFuncs{
		EncodeKey: func(fields shed.Item) (key []byte, err error) {
			key = make([]byte, 0, len(fields.Category)+9+len(fields.ID))
			key = append(key, fields.Category...)
			key = append(key, categorySeparator)
			key = appendUint64(key, ^uint64(fields.UpdatedAt))
			key = append(key, fields.ID...)
			return key, nil
		},
		DecodeKey: func(key []byte) (e shed.Item, err error) {
			sep := bytesIndexByte(key, categorySeparator)
			if sep < 0 || len(key) < sep+9 {
				return e, errInvalidIndexKey
			}
			e.Category = key[:sep]
			e.UpdatedAt = int64(^binary.BigEndian.Uint64(key[sep+1 : sep+9]))
			e.ID = key[sep+9:]
			return e, nil
		},
		EncodeValue: func(fields shed.Item) (value []byte, err error) {
			return nil, nil
		},
		DecodeValue: func(keyItem shed.Item, value []byte) (e shed.Item, err error) {
			return e, nil
		},
	})
	if err != nil {
		return nil, err
	}

	// Index ordering expiring records by deadline for the eager
	// expiry sweep. Records without a deadline are not present.
	db.expirationIndex, err = sdb.NewIndex("ExpiresAt|ID->nil", shed.IndexFuncs{
		EncodeKey: func(fields shed.Item) (key []byte, err error) {
			key = make([]byte, 0, 8+len(fields.ID))
			key = appendUint64(key, uint64(fields.ExpiresAt))
			key = append(key, fields.ID...)
			return key, nil
		},
		DecodeKey: func(key []byte) (e shed.Item, err error) {
			if len(key) < 8 {
				return e, errInvalidIndexKey
			}
			e.ExpiresAt = int64(binary.BigEndian.Uint64(key[:8]))
			e.ID = key[8:]
			return e, nil
		},
		EncodeValue: func(fields shed.Item) (value []byte, err error) {
			return nil, nil
		},
		DecodeValue: func(keyItem shed.Item, value []byte) (e shed.Item, err error) {
			return e, nil
		},
	})
	if err != nil {
		return nil, err
	}

	// Index ordering all records by eviction precedence. Unsynced
	// records sort after synced ones, higher priorities after lower,
	// newer records after older, so iterating from the start always
	// visits the most expendable record first.
	db.gcIndex, err = sdb.NewIndex("Synced|Priority|UpdatedAt|ID->Size", shed.IndexFuncs{
		EncodeKey: func(fields shed.Item) (key []byte, err error) {
			key = make([]byte, 0, 10+len(fields.ID))
			if fields.Synced {
				key = append(key, 0)
			} else {
				key = append(key, 1)
			}
			key = append(key, fields.Priority)
			key = appendUint64(key, uint64(fields.UpdatedAt))
			key = append(key, fields.ID...)
			return key, nil
		},
		DecodeKey: func(key []byte) (e shed.Item, err error) {
			if len(key) < 10 {
				return e, errInvalidIndexKey
			}
			e.Synced = key[0] == 0
			e.Priority = key[1]
			e.UpdatedAt = int64(binary.BigEndian.Uint64(key[2:10]))
			e.ID = key[10:]
			return e, nil
		},
		EncodeValue: func(fields shed.Item) (value []byte, err error) {
			value = make([]byte, 8)
			binary.BigEndian.PutUint64(value, uint64(fields.Size))
			return value, nil
		},
		DecodeValue: func(keyItem shed.Item, value []byte) (e shed.Item, err error) {
			if len(value) < 8 {
				return e, errInvalidIndexKey
			}
			e.Size = int64(binary.BigEndian.Uint64(value))
			return e, nil
		},
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.shed.Close()
}

// Size returns the current total size of all stored records in bytes.
func (db *DB) Size() (int64, error) {
	v, err := db.gcSize.Get()
	return int64(v), err
}

// Capacity returns the configured maximum total size.
func (db *DB) Capacity() int64 {
	db.batchMu.Lock()
	defer db.batchMu.Unlock()
	return db.capacity
}

// SetCapacity changes the eviction budget. Callers are expected to run
// Evict afterwards if the budget shrank.
func (db *DB) SetCapacity(n int64) {
	db.batchMu.Lock()
	db.capacity = n
	db.batchMu.Unlock()
}

// SetCompression toggles payload compression for subsequent writes.
// Stored records keep the encoding they were written with.
func (db *DB) SetCompression(enabled bool) {
	db.batchMu.Lock()
	db.compression = enabled
	db.batchMu.Unlock()
}

const categorySeparator byte = 0x00

var errInvalidIndexKey = errors.New("localstore: invalid index key")

// now returns the current timestamp used in all index entries. It is a
// variable so tests can control time.
var now = func() int64 {
	return time.Now().UTC().UnixNano()
}

func appendUint64(b []byte, v uint64) []byte {
	var e [8]byte
	binary.BigEndian.PutUint64(e[:], v)
	return append(b, e[:]...)
}

func bytesIndexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// recordFlag bits persisted in the retrieval index value.
const (
	flagSynced     = 1 << 0
	flagCompressed = 1 << 1
)

// encodeRecordValue serializes all non-key record fields:
// createdAt|updatedAt|expiresAt|size (8 bytes each, big endian),
// flags and priority (1 byte each), version (8 bytes),
// category length (2 bytes), category, payload.
func encodeRecordValue(fields shed.Item) (value []byte, err error) {
	value = make([]byte, 0, 42+len(fields.Category)+len(fields.Data))
	value = appendUint64(value, uint64(fields.CreatedAt))
	value = appendUint64(value, uint64(fields.UpdatedAt))
	value = appendUint64(value, uint64(fields.ExpiresAt))
	value = appendUint64(value, uint64(fields.Size))
	var flags byte
	if fields.Synced {
		flags |= flagSynced
	}
	if fields.Compressed {
		flags |= flagCompressed
	}
	value = append(value, flags, fields.Priority)
	value = appendUint64(value, fields.Version)
	if len(fields.Category) > 0xffff {
		return nil, errors.New("localstore: category too long")
	}
	value = append(value, byte(len(fields.Category)>>8), byte(len(fields.Category)))
	value = append(value, fields.Category...)
	value = append(value, fields.Data...)
	return value, nil
}

func decodeRecordValue(keyItem shed.Item, value []byte) (e shed.Item, err error) {
	if len(value) < 44 {
		return e, errInvalidIndexKey
	}
	e.CreatedAt = int64(binary.BigEndian.Uint64(value[0:8]))
	e.UpdatedAt = int64(binary.BigEndian.Uint64(value[8:16]))
	e.ExpiresAt = int64(binary.BigEndian.Uint64(value[16:24]))
	e.Size = int64(binary.BigEndian.Uint64(value[24:32]))
	flags := value[32]
	e.Synced = flags&flagSynced != 0
	e.Compressed = flags&flagCompressed != 0
	e.Priority = value[33]
	e.Version = binary.BigEndian.Uint64(value[34:42])
	catLen := int(value[42])<<8 | int(value[43])
	if len(value) < 44+catLen {
		return e, errInvalidIndexKey
	}
	e.Category = value[44 : 44+catLen]
	e.Data = value[44+catLen:]
	return e, nil
}

// itemToRecord converts a decoded index item to the exported record
// form with the payload already decoded. The returned record shares no
// memory with store internals.
func (db *DB) itemToRecord(item shed.Item) (storage.Record, error) {
	data := item.Data
	if item.Compressed {
		var err error
		data, err = db.codec.Decode(item.Data)
		if err != nil {
			return storage.Record{}, err
		}
	} else {
		data = append([]byte(nil), data...)
	}
	r := storage.Record{
		ID:        string(item.ID),
		Category:  string(item.Category),
		Data:      data,
		CreatedAt: time.Unix(0, item.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, item.UpdatedAt).UTC(),
		Synced:    item.Synced,
		Priority:  storage.Priority(item.Priority),
		Version:   item.Version,
	}
	if item.ExpiresAt != 0 {
		r.ExpiresAt = time.Unix(0, item.ExpiresAt).UTC()
	}
	return r, nil
}
