package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

const (
	// TablePartitionKey groups all board entities.
	TablePartitionKey = "board"

	// Binary properties are limited to 64 KiB and entities to 1 MiB.
	tableChunkBytes = 48 * 1024
	tableMaxChunks  = 15
)

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
}

// Table stores blobs as entities in Azure Table Storage, one row per key.
// Blobs are split across binary properties Data0..DataN.
type Table struct {
	client tableClient
}

// NewTable creates a Table backend from the given connection string.
func NewTable(connStr, table string) (*Table, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Table{client: svc.NewClient(table)}, nil
}

func (t *Table) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	resp, err := t.client.GetEntity(ctx, TablePartitionKey, key, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get entity %s: %w", key, err)
	}
	data, err := decodeBlobEntity(resp.Value)
	if err != nil {
		return nil, false, fmt.Errorf("decode entity %s: %w", key, err)
	}
	return data, true, nil
}

func (t *Table) Save(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	payload, err := encodeBlobEntity(key, data)
	if err != nil {
		return err
	}
	_, err = t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		return fmt.Errorf("upsert entity %s: %w", key, err)
	}
	return nil
}

func encodeBlobEntity(key string, data []byte) ([]byte, error) {
	chunks := (len(data) + tableChunkBytes - 1) / tableChunkBytes
	if chunks > tableMaxChunks {
		return nil, fmt.Errorf("blob %s is %d bytes, exceeds table entity limit", key, len(data))
	}
	ent := map[string]any{
		"PartitionKey":      TablePartitionKey,
		"RowKey":            key,
		"Chunks":            chunks,
		"Chunks@odata.type": "Edm.Int32",
	}
	for i := 0; i < chunks; i++ {
		end := (i + 1) * tableChunkBytes
		if end > len(data) {
			end = len(data)
		}
		name := "Data" + strconv.Itoa(i)
		ent[name] = data[i*tableChunkBytes : end]
		ent[name+"@odata.type"] = "Edm.Binary"
	}
	return sonic.Marshal(ent)
}

func decodeBlobEntity(value []byte) ([]byte, error) {
	var raw map[string]sonic.NoCopyRawMessage
	if err := sonic.Unmarshal(value, &raw); err != nil {
		return nil, err
	}
	var chunks int
	if v, ok := raw["Chunks"]; ok {
		if err := sonic.Unmarshal(v, &chunks); err != nil {
			return nil, fmt.Errorf("chunks: %w", err)
		}
	}
	out := make([]byte, 0, chunks*tableChunkBytes)
	for i := 0; i < chunks; i++ {
		name := "Data" + strconv.Itoa(i)
		v, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("missing property %s", name)
		}
		var part []byte
		if err := sonic.Unmarshal(v, &part); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, part...)
	}
	return out, nil
}
