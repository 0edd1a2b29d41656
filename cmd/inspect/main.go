// Command inspect dumps the badger keyspaces in a readable table.
// Opens the store read-only so it can run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"chatorbit/domain"
)

func main() {
	dbPath := flag.String("db", "/tmp/chatorbit", "Path to badger DB")
	prefix := flag.String("prefix", "", "Prefix to scan (acct:, msg:, offline:; empty scans everything)")
	flag.Parse()

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Parties", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	color.Cyan.Printf("Scanned %q under %s: %d entries\n\n", *prefix, *dbPath, rows)
	table.Render()
}

func toRow(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "acct:"):
		var account domain.Account
		if err := json.Unmarshal(value, &account); err != nil {
			return errorRow(key, err)
		}
		state := color.Red.Sprint("offline")
		if account.Online() {
			state = color.Green.Sprintf("online via %s", account.Connection.ID)
		}
		return []string{key, "ACCOUNT", "", account.UID, fmt.Sprintf("%s <%s> %s", account.Username, account.Email, state)}

	case strings.HasPrefix(key, "msg:"):
		var message domain.Message
		if err := json.Unmarshal(value, &message); err != nil {
			return errorRow(key, err)
		}
		parties := fmt.Sprintf("%s -> %s", message.Sender, message.Receiver)
		return []string{key, "MESSAGE", message.SentAt.Format("15:04:05"), parties, message.Content}

	case strings.HasPrefix(key, "offline:"):
		var message domain.OfflineMessage
		if err := json.Unmarshal(value, &message); err != nil {
			return errorRow(key, err)
		}
		parties := fmt.Sprintf("%s -> %s", message.Sender, message.Receiver)
		return []string{key, "OFFLINE", message.SentAt.Format("15:04:05"), parties, message.Content}

	default:
		return []string{key, "RAW", "", "", fmt.Sprintf("%d bytes", len(value))}
	}
}

func errorRow(key string, err error) []string {
	return []string{key, "ERROR", "", "", err.Error()}
}
