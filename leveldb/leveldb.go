package leveldb

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"sync"

	"github.com/elvinchan/dbfixture"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v5"
)

type levelDB struct {
	db     *leveldb.DB
	option *dbfixture.Options
	// serializes sequence allocation
	mu sync.Mutex
}

// NewDriver opens (or creates) the LevelDB at path. A collection is the set
// of keys under its own prefix.
func NewDriver(path string, opts ...dbfixture.Option) (dbfixture.Driver, error) {
	o := dbfixture.InitOptions()
	for _, opt := range opts {
		opt(o)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &levelDB{
		db:     db,
		option: o,
	}, nil
}

func (l *levelDB) Truncate(collections []string) error {
	return dbfixture.TruncateAll(collections, l.deleteAll, l.option)
}

func (l *levelDB) deleteAll(collection string) (dbfixture.Outcome, error) {
	batch := new(leveldb.Batch)
	iter := l.db.NewIterator(util.BytesPrefix(docPrefix(collection)), nil)
	for iter.Next() {
		batch.Delete(iter.Key())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return dbfixture.Outcome{}, err
	}
	if err := l.db.Write(batch, nil); err != nil {
		return dbfixture.Outcome{}, err
	}
	n := int64(batch.Len())
	l.option.Logger.Debug("truncated collection",
		"collection", collection, "deleted", n)
	return dbfixture.Outcome{Acknowledged: true, Count: n}, nil
}

func (l *levelDB) InsertFixtures(collection string, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	seq, err := l.sequence(collection)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, doc := range docs {
		v, err := msgpack.Marshal(doc)
		if err != nil {
			return err
		}
		seq++
		batch.Put(docKey(collection, seq), v)
	}
	batch.Put(seqKey(collection), encodeSeq(seq))
	if err := l.db.Write(batch, nil); err != nil {
		return err
	}
	n := int64(len(docs))
	l.option.Logger.Debug("inserted fixtures",
		"collection", collection, "inserted", n)
	return dbfixture.CheckInsert(collection,
		dbfixture.Outcome{Acknowledged: true, Count: n})
}

func (l *levelDB) Close() error {
	return l.db.Close()
}

func (l *levelDB) sequence(collection string) (uint64, error) {
	v, err := l.db.Get(seqKey(collection), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

// ReadCollection decodes every document of collection from the LevelDB at
// path, in insertion order. The database must not be open elsewhere.
func ReadCollection(path, collection string) ([]map[string]interface{}, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var docs []map[string]interface{}
	iter := db.NewIterator(util.BytesPrefix(docPrefix(collection)), nil)
	defer iter.Release()
	for iter.Next() {
		var doc map[string]interface{}
		if err := msgpack.Unmarshal(iter.Value(), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, iter.Error()
}

// docPrefix is "doc:<len>:<collection>:", the length keeps "a" from
// matching the documents of "a:b".
func docPrefix(collection string) []byte {
	var buffer bytes.Buffer
	buffer.WriteString("doc:")
	buffer.WriteString(strconv.Itoa(len(collection)))
	buffer.WriteString(":")
	buffer.WriteString(collection)
	buffer.WriteString(":")
	return buffer.Bytes()
}

func docKey(collection string, seq uint64) []byte {
	return append(docPrefix(collection), encodeSeq(seq)...)
}

func seqKey(collection string) []byte {
	return []byte("seq:" + collection)
}

// big endian keeps keys in insertion order
func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
