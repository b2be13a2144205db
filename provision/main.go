// Command provision creates the Azure table used by STORAGE_BACKEND=table.
package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"
)

type tableCreator interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	table := os.Getenv("BOARD_TABLE")
	if table == "" {
		table = "board"
	}

	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		log.Fatalf("service client: %v", err)
	}
	created, err := ensureTable(context.Background(), svc.NewClient(table))
	if err != nil {
		log.Fatalf("create table %s: %v", table, err)
	}
	log.WithFields(log.Fields{"table": table, "created": created}).Info("board table ready")
}

// ensureTable creates the table and treats an existing one as success.
func ensureTable(ctx context.Context, c tableCreator) (bool, error) {
	if _, err := c.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
