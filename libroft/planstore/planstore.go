// Package planstore caches encoded BatchPlans in a badger db, keyed by mesh fingerprint and build options.
package planstore

import (
	"runtime"

	"github.com/2x3systems/roft/roft"
	"github.com/dgraph-io/badger/v4"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Plan store db format:

	gStoreStateKey              => StoreState (varint major, varint minor, varint plan count)

	kPlanPrefix, PlanKey bytes  => BatchPlan (protobuf wire encoding)
		...

PlanKey bytes are the big endian mesh fingerprint, a flags byte, then the blob distance and min
connection count as uvarints (see roft.PlanKey.AppendTo).

***/

var (
	gStoreStateKey = []byte{0x00, 0x00, 0x01}
)

const (
	kPlanPrefix = 0x01

	kMajorVers = 2024
	kMinorVers = 1
)

// Errors
var (
	ErrReadOnly         = errors.New("plan store is read-only")
	ErrIncompatible     = errors.New("plan store version is incompatible")
	ErrBadStoreParam    = errors.New("bad plan store param")
	ErrBadStateEncoding = errors.New("bad plan store state encoding")
)

// Opts specifies params for opening a Store.
type Opts struct {
	DbPathName string // if empty, the store lives in memory only
	ReadOnly   bool
}

// StoreState is the versioned header record of a Store.
type StoreState struct {
	MajorVers uint32
	MinorVers uint32
	NumPlans  uint64
}

func (state *StoreState) Marshal() ([]byte, error) {
	buf := proto.NewBuffer(make([]byte, 0, 16))
	for _, v := range [...]uint64{uint64(state.MajorVers), uint64(state.MinorVers), state.NumPlans} {
		if err := buf.EncodeVarint(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (state *StoreState) Unmarshal(src []byte) error {
	var vals [3]uint64
	pos := 0
	for i := range vals {
		v, n := proto.DecodeVarint(src[pos:])
		if n == 0 {
			return ErrBadStateEncoding
		}
		vals[i] = v
		pos += n
	}
	state.MajorVers = uint32(vals[0])
	state.MinorVers = uint32(vals[1])
	state.NumPlans = vals[2]
	return nil
}

// Store is a badger db of BatchPlans.
type Store struct {
	readOnly   bool
	stateDirty bool
	state      StoreState
	db         *badger.DB
}

// Make sure Store satisfies the roft.PlanStore interface.
var _ roft.PlanStore = (*Store)(nil)

// Open opens (or creates) the plan store described by opts.
func Open(opts Opts) (*Store, error) {
	st := &Store{
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // not needed so disable for performance
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(ErrBadStoreParam, "DbPathName must be specified for a read-only store")
		}
		dbOpts.InMemory = true
	}

	var err error
	st.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	err = st.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		st.stateDirty = !st.readOnly
		st.state.MajorVers = kMajorVers
		st.state.MinorVers = kMinorVers
	}

	if err == nil && (st.state.MajorVers != kMajorVers || st.state.MinorVers != kMinorVers) {
		err = errors.Wrapf(ErrIncompatible, "found v%d.%d", st.state.MajorVers, st.state.MinorVers)
	}

	if err != nil {
		st.Close()
		return nil, err
	}

	klog.V(2).Infof("plan store %q opened with %d plans", opts.DbPathName, st.state.NumPlans)
	return st, nil
}

func (st *Store) loadState() error {
	return st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gStoreStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return st.state.Unmarshal(val)
		})
	})
}

func (st *Store) flushState() error {
	if !st.stateDirty || st.db == nil {
		return nil
	}
	err := st.db.Update(func(txn *badger.Txn) error {
		stateBuf, err := st.state.Marshal()
		if err != nil {
			return err
		}
		return txn.Set(gStoreStateKey, stateBuf)
	})
	if err == nil {
		st.stateDirty = false
	}
	return err
}

// NumPlans returns the number of plans held by this store.
func (st *Store) NumPlans() uint64 {
	return st.state.NumPlans
}

func (st *Store) IsReadOnly() bool {
	return st.readOnly
}

func dbKey(key roft.PlanKey) []byte {
	return key.AppendTo([]byte{kPlanPrefix})
}

// Get returns the plan stored under key, or roft.ErrPlanNotFound.
func (st *Store) Get(key roft.PlanKey) (*roft.BatchPlan, error) {
	if st.db == nil {
		return nil, roft.ErrStoreClosed
	}

	plan := &roft.BatchPlan{}
	err := st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return plan.Unmarshal(val)
		})
	})
	if err == badger.ErrKeyNotFound {
		klog.V(2).Infof("plan store miss: mesh %016x", key.MeshID)
		return nil, roft.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	klog.V(2).Infof("plan store hit: mesh %016x", key.MeshID)
	return plan, nil
}

// Put stores plan under key, replacing any plan already there.
func (st *Store) Put(key roft.PlanKey, plan *roft.BatchPlan) error {
	if st.db == nil {
		return roft.ErrStoreClosed
	}
	if st.readOnly {
		return ErrReadOnly
	}

	planBuf, err := plan.Marshal()
	if err != nil {
		return err
	}

	k := dbKey(key)
	added := false
	err = st.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			added = true
		} else if err != nil {
			return err
		}
		return txn.Set(k, planBuf)
	})
	if err != nil {
		return errors.Wrap(err, "plan store put failed")
	}

	if added {
		st.state.NumPlans++
		st.stateDirty = true
	}
	return nil
}

// Close flushes the store state and closes the db.
func (st *Store) Close() error {
	err := st.flushState()
	if st.db != nil {
		if closeErr := st.db.Close(); err == nil {
			err = closeErr
		}
		st.db = nil
	}
	return err
}
