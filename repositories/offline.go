package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chatorbit/domain"
)

// OfflineRepository is the durable queue for messages destined to an
// account with no live connection. Its keyspace is disjoint from the
// message log: keys are grouped by receiver so a drain is one prefix scan.
type OfflineRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewOfflineRepository(db *badger.DB, log *slog.Logger) *OfflineRepository {
	return &OfflineRepository{db: db, log: log}
}

func offlineKey(message domain.OfflineMessage) []byte {
	return []byte(fmt.Sprintf("offline:%s:%019d:%s",
		message.Receiver,
		message.SentAt.UnixNano(),
		message.ID,
	))
}

func (r *OfflineRepository) Enqueue(message domain.OfflineMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(offlineKey(message), data)
	})
}

// Drain returns the receiver's queued messages ascending by send time and
// deletes them in the same transaction. Drained messages are handed to the
// requester only; they are never inserted into the message log.
func (r *OfflineRepository) Drain(receiver string) ([]domain.OfflineMessage, error) {
	var messages []domain.OfflineMessage
	err := r.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("offline:" + receiver + ":")
		var drained [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var message domain.OfflineMessage
				if err := json.Unmarshal(val, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
			drained = append(drained, item.KeyCopy(nil))
		}
		for _, key := range drained {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		r.log.Debug("drained offline queue", "receiver", receiver, "count", len(messages))
	}
	return messages, nil
}
