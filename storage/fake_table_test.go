package storage

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
)

type fakeRow struct {
	data []byte
	etag int
}

// fakeTable mimics the subset of Azure Table semantics the backend relies on:
// keyed rows, merge updates guarded by ETag and 404/409 response errors.
type fakeTable struct {
	mu      sync.Mutex
	rows    map[string]fakeRow
	created bool
	updates int
	// conflicts makes that many updates fail as if another writer got there
	// first.
	conflicts int
}

func newFakeTable() *fakeTable {
	return &fakeTable{rows: map[string]fakeRow{}}
}

func rowKey(pk, rk string) string { return pk + "/" + rk }

func (f *fakeTable) CreateTable(ctx context.Context, _ *aztables.CreateTableOptions) (aztables.CreateTableResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created {
		return aztables.CreateTableResponse{}, &azcore.ResponseError{StatusCode: 409, ErrorCode: string(aztables.TableAlreadyExists)}
	}
	f.created = true
	return aztables.CreateTableResponse{}, nil
}

func (f *fakeTable) AddEntity(ctx context.Context, entity []byte, _ *aztables.AddEntityOptions) (aztables.AddEntityResponse, error) {
	var keys entityKeys
	if err := sonic.Unmarshal(entity, &keys); err != nil {
		return aztables.AddEntityResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(keys.PartitionKey, keys.RowKey)
	if _, ok := f.rows[k]; ok {
		return aztables.AddEntityResponse{}, &azcore.ResponseError{StatusCode: 409}
	}
	f.rows[k] = fakeRow{data: entity, etag: 1}
	return aztables.AddEntityResponse{}, nil
}

func (f *fakeTable) GetEntity(ctx context.Context, pk, rk string, _ *aztables.GetEntityOptions) (aztables.GetEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[rowKey(pk, rk)]
	if !ok {
		return aztables.GetEntityResponse{}, &azcore.ResponseError{StatusCode: 404}
	}
	return aztables.GetEntityResponse{ETag: azcore.ETag(strconv.Itoa(row.etag)), Value: row.data}, nil
}

func (f *fakeTable) UpdateEntity(ctx context.Context, entity []byte, o *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error) {
	var update map[string]any
	if err := sonic.Unmarshal(entity, &update); err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	pk, _ := update["PartitionKey"].(string)
	rk, _ := update["RowKey"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(pk, rk)
	row, ok := f.rows[k]
	if !ok {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: 404}
	}
	if f.conflicts > 0 {
		f.conflicts--
		row.etag++
		f.rows[k] = row
	}
	if o != nil && o.IfMatch != nil && *o.IfMatch != azcore.ETagAny && string(*o.IfMatch) != strconv.Itoa(row.etag) {
		return aztables.UpdateEntityResponse{}, &azcore.ResponseError{StatusCode: 412}
	}
	var current map[string]any
	if err := sonic.Unmarshal(row.data, &current); err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	for key, v := range update {
		current[key] = v
	}
	merged, err := sonic.Marshal(current)
	if err != nil {
		return aztables.UpdateEntityResponse{}, err
	}
	f.rows[k] = fakeRow{data: merged, etag: row.etag + 1}
	f.updates++
	return aztables.UpdateEntityResponse{}, nil
}

func (f *fakeTable) DeleteEntity(ctx context.Context, pk, rk string, _ *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(pk, rk)
	if _, ok := f.rows[k]; !ok {
		return aztables.DeleteEntityResponse{}, &azcore.ResponseError{StatusCode: 404}
	}
	delete(f.rows, k)
	return aztables.DeleteEntityResponse{}, nil
}

func (f *fakeTable) NewListEntitiesPager(_ *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	f.mu.Lock()
	keys := make([]string, 0, len(f.rows))
	for k := range f.rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	page := aztables.ListEntitiesResponse{}
	for _, k := range keys {
		page.Entities = append(page.Entities, f.rows[k].data)
	}
	f.mu.Unlock()

	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool { return false },
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			return page, nil
		},
	})
}
