package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type writeKind int

const (
	writeCreate writeKind = iota
	writeSet
	writeUpdate
	writeDelete
)

func (k writeKind) String() string {
	switch k {
	case writeCreate:
		return "create"
	case writeSet:
		return "set"
	case writeUpdate:
		return "update"
	default:
		return "delete"
	}
}

type write struct {
	kind   writeKind
	ref    Ref
	fields Fields
}

// Batch collects writes that commit all together or not at all.
type Batch struct {
	client *Client

	mu        sync.Mutex
	writes    []write
	committed bool
}

func (c *Client) Batch() *Batch {
	return &Batch{client: c}
}

func (b *Batch) Create(ref Ref, fields Fields) *Batch {
	return b.add(write{kind: writeCreate, ref: ref, fields: fields})
}

func (b *Batch) Set(ref Ref, fields Fields) *Batch {
	return b.add(write{kind: writeSet, ref: ref, fields: fields})
}

func (b *Batch) Update(ref Ref, fields Fields) *Batch {
	return b.add(write{kind: writeUpdate, ref: ref, fields: fields})
}

func (b *Batch) Delete(ref Ref) *Batch {
	return b.add(write{kind: writeDelete, ref: ref})
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

func (b *Batch) add(w write) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, w)
	return b
}

func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	if b.committed {
		b.mu.Unlock()
		return newError(CodeFailedPrecondition, "commit", "batch already committed")
	}
	b.committed = true
	writes := append([]write(nil), b.writes...)
	b.mu.Unlock()

	for _, w := range writes {
		if err := b.client.authorizeRef(w.kind.String(), w.ref); err != nil {
			return err
		}
		if w.ref.Collection == accountsCollection && !b.client.admin {
			return newError(CodePermissionDenied, w.kind.String(), "accounts are private")
		}
	}
	if len(writes) == 0 {
		return nil
	}

	store := b.client.store
	if err := store.commit(ctx, writes); err != nil {
		return err
	}

	touched := make(map[string]struct{}, len(writes))
	for _, w := range writes {
		touched[w.ref.Collection] = struct{}{}
	}
	store.hub.notify(touched)
	return nil
}

func (s *Store) commit(ctx context.Context, writes []write) error {
	at := s.stamp()
	stamp := at.Format(TimestampLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("commit", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range writes {
		op := w.kind.String() + " " + w.ref.Path()
		switch w.kind {
		case writeDelete:
			if err := exec(ctx, tx, op, "DELETE FROM documents WHERE collection = ? AND id = ?", w.ref.Collection, w.ref.ID); err != nil {
				return err
			}
			continue
		case writeUpdate:
			existing, err := s.get(ctx, tx, w.ref)
			if err != nil {
				return err
			}
			fields, err := normalizeFields(w.fields, at)
			if err != nil {
				return err
			}
			for key, value := range fields {
				existing.Data[key] = value
			}
			payload, err := json.Marshal(existing.Data)
			if err != nil {
				return wrapError(op, err)
			}
			if err := exec(ctx, tx, op, "UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?",
				string(payload), stamp, w.ref.Collection, w.ref.ID); err != nil {
				return err
			}
			continue
		}

		fields, err := normalizeFields(w.fields, at)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(fields)
		if err != nil {
			return wrapError(op, err)
		}

		if w.kind == writeCreate {
			err = exec(ctx, tx, op, "INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				w.ref.Collection, w.ref.ID, string(payload), stamp, stamp)
			if IsCode(err, CodeAlreadyExists) {
				return newError(CodeAlreadyExists, "create", "%s already exists", w.ref.Path())
			}
		} else {
			err = exec(ctx, tx, op, `INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
				w.ref.Collection, w.ref.ID, string(payload), stamp, stamp)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapError("commit", fmt.Errorf("commit %d writes: %w", len(writes), err))
	}
	return nil
}
