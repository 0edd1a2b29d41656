package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"chatorbit/domain"
	"chatorbit/errors"
)

const accountPrefix = "acct:"

type AccountRepository struct {
	db *badger.DB
}

func NewAccountRepository(db *badger.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func accountKey(uid string) []byte {
	return []byte(accountPrefix + uid)
}

// Create persists a new account. The UID is the caller-supplied durable
// identity, created once at signup.
func (r *AccountRepository) Create(account domain.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := accountKey(account.UID)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrAccountAlreadyExists
		}
		return txn.Set(key, data)
	})
}

func (r *AccountRepository) FindByUID(uid string) (domain.Account, error) {
	var account domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(uid))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &account)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Account{}, errors.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) List() ([]domain.Account, error) {
	var accounts []domain.Account
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(accountPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var account domain.Account
				if err := json.Unmarshal(val, &account); err != nil {
					return err
				}
				accounts = append(accounts, account)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return accounts, err
}

// UpdateConnection rewrites the account's live-connection reference inside
// one Badger transaction. A nil ref clears the binding.
func (r *AccountRepository) UpdateConnection(uid string, ref *domain.ConnectionRef) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		key := accountKey(uid)
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var account domain.Account
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &account)
		}); err != nil {
			return err
		}
		account.Connection = ref
		data, err := json.Marshal(account)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrAccountNotFound
	}
	return err
}
