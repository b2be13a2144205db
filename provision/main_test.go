package main

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

type fakeCreator struct{ err error }

func (f fakeCreator) CreateTable(context.Context, *aztables.CreateTableOptions) (aztables.CreateTableResponse, error) {
	return aztables.CreateTableResponse{}, f.err
}

func TestEnsureTable(t *testing.T) {
	boom := errors.New("forbidden")
	tests := []struct {
		name        string
		err         error
		wantCreated bool
		wantErr     error
	}{
		{name: "created", wantCreated: true},
		{name: "exists", err: &azcore.ResponseError{StatusCode: 409, ErrorCode: string(aztables.TableAlreadyExists)}},
		{name: "failure", err: boom, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := ensureTable(context.Background(), fakeCreator{err: tt.err})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if created != tt.wantCreated {
				t.Fatalf("created = %v, want %v", created, tt.wantCreated)
			}
		})
	}
}
