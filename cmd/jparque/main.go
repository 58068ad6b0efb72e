// Command jparque is a minimal demo CLI over the B+Tree table: open a
// file, write one record, read it back. It exists to exercise
// the engine end-to-end, not as a full interactive shell.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tuannm99/jparque/internal/config"
	"github.com/tuannm99/jparque/internal/table"
)

func main() {
	var (
		dbPath     = flag.String("db", "jparque.db", "path to the B+Tree database file")
		configPath = flag.String("config", "", "optional YAML config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("jparque: load config", "err", err)
		os.Exit(1)
	}

	eng, err := table.Open(*dbPath, cfg)
	if err != nil {
		slog.Error("jparque: open table", "err", err)
		os.Exit(1)
	}
	defer eng.Close()

	key := []byte("hello")
	if err := eng.Write(key, map[string]any{"greeting": "world"}); err != nil {
		slog.Error("jparque: write", "err", err)
		os.Exit(1)
	}

	fields, ok, err := eng.Read(key)
	if err != nil {
		slog.Error("jparque: read", "err", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("not found")
		return
	}
	fmt.Printf("%s -> %v\n", key, fields)
}
