package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"pairchat/internal"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the server) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// 3. Start Debug Server Only
	// We provide an empty stats provider since the orchestrator isn't running here
	emptyStats := func() map[string]any {
		return map[string]any{
			"Status": "Viewer Mode (Read-Only)",
			"Time":   time.Now().Format(time.RFC822),
		}
	}

	fmt.Printf("🌐 Viewer started at http://localhost:%d/inspect\n", config.DebugPort)

	internal.StartDebugServer(db, config.DebugPort, "/inspect", RecordMapper, emptyStats)
	internal.Wait("msg:")
}

// RecordMapper enriches the default key decoding with a peek into the
// JSON value: message text, user name, conversation participants.
func RecordMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)

	var record map[string]any
	if err := json.Unmarshal(val, &record); err != nil {
		return row
	}

	switch row.Type {
	case "MESSAGE":
		if text, ok := record["text"].(string); ok && text != "" {
			row.Detail = truncate(text, 60)
		}
	case "USER":
		if name, ok := record["name"].(string); ok {
			row.Detail = name
			if email, ok := record["email"].(string); ok {
				row.Detail = fmt.Sprintf("%s <%s>", name, email)
			}
		}
	case "CONVERSATION":
		initiator, _ := record["initiator"].(string)
		counterpart, _ := record["counterpart"].(string)
		if initiator != "" || counterpart != "" {
			row.Detail = fmt.Sprintf("%s <-> %s", truncate(initiator, 8), truncate(counterpart, 8))
		}
	}
	return row
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
