package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrNotInitialized is returned when the client was constructed without an
// API key. Construction itself never fails on a missing credential.
var ErrNotInitialized = errors.New("pinecone client is not initialized")

// Vector is one entry to store: id, embedding and flat metadata.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]interface{}
}

// QueryRequest asks for the TopK nearest neighbours of Vector, optionally
// constrained by a metadata filter.
type QueryRequest struct {
	Vector          []float32
	TopK            int
	Filter          *Filter
	IncludeMetadata bool
}

// Match is a ranked query result; Score is higher for more similar vectors
// and matches arrive already ordered by descending score.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]interface{}
}

// Client wraps the Pinecone SDK with a default index plus lazily created,
// process-lifetime index connections. Connections are cached per index name
// and shared by all requests.
type Client struct {
	pc           *pinecone.Client
	defaultIndex string
	namespace    string

	mu    sync.Mutex
	conns map[string]*pinecone.IndexConnection
}

type Config struct {
	APIKey    string
	Index     string
	Namespace string
}

func NewClient(cfg Config) *Client {
	c := &Client{
		defaultIndex: cfg.Index,
		namespace:    cfg.Namespace,
		conns:        make(map[string]*pinecone.IndexConnection),
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Printf("PINECONE_KEY is not set, vector store calls will be unavailable")
		return c
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		log.Printf("create pinecone client failed, vector store calls will be unavailable: %v", err)
		return c
	}
	c.pc = pc
	log.Printf("pinecone initialized with default index: %s", cfg.Index)
	return c
}

func (c *Client) Ready() bool {
	return c.pc != nil
}

// conn returns the cached connection for the named index, dialing it on first
// use. An empty name means the default index.
func (c *Client) conn(ctx context.Context, indexName string) (*pinecone.IndexConnection, error) {
	if c.pc == nil {
		return nil, ErrNotInitialized
	}
	if indexName == "" {
		indexName = c.defaultIndex
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[indexName]; ok {
		return conn, nil
	}

	idx, err := c.pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %q failed: %w", indexName, err)
	}
	conn, err := c.pc.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: c.namespace})
	if err != nil {
		return nil, fmt.Errorf("connect index %q failed: %w", indexName, err)
	}
	c.conns[indexName] = conn
	return conn, nil
}

// Upsert writes one vector into the default index. A repeated id overwrites.
func (c *Client) Upsert(ctx context.Context, vec Vector) error {
	return c.UpsertTo(ctx, "", vec)
}

// UpsertTo writes one vector into the named index.
func (c *Client) UpsertTo(ctx context.Context, indexName string, vec Vector) error {
	conn, err := c.conn(ctx, indexName)
	if err != nil {
		return err
	}

	var metadata *structpb.Struct
	if len(vec.Metadata) > 0 {
		metadata, err = structpb.NewStruct(vec.Metadata)
		if err != nil {
			return fmt.Errorf("convert metadata for vector %s failed: %w", vec.ID, err)
		}
	}

	values := vec.Values
	if _, err := conn.UpsertVectors(ctx, []*pinecone.Vector{{
		Id:       vec.ID,
		Values:   &values,
		Metadata: metadata,
	}}); err != nil {
		return fmt.Errorf("upsert vector %s failed: %w", vec.ID, err)
	}
	return nil
}

// Query runs a similarity search on the default index and returns at most
// TopK matches ordered by descending score, as ranked by Pinecone.
func (c *Client) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	conn, err := c.conn(ctx, "")
	if err != nil {
		return nil, err
	}

	queryReq := &pinecone.QueryByVectorValuesRequest{
		Vector:          req.Vector,
		TopK:            uint32(req.TopK),
		IncludeMetadata: req.IncludeMetadata,
	}
	if req.Filter != nil && !req.Filter.Empty() {
		filter, err := req.Filter.Struct()
		if err != nil {
			return nil, fmt.Errorf("convert metadata filter failed: %w", err)
		}
		queryReq.MetadataFilter = filter
	}

	resp, err := conn.QueryByVectorValues(ctx, queryReq)
	if err != nil {
		return nil, fmt.Errorf("query vectors failed: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := Match{
			ID:    m.Vector.Id,
			Score: m.Score,
		}
		if m.Vector.Metadata != nil {
			match.Metadata = m.Vector.Metadata.AsMap()
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Delete removes one vector from the default index by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	conn, err := c.conn(ctx, "")
	if err != nil {
		return err
	}
	if err := conn.DeleteVectorsById(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete vector %s failed: %w", id, err)
	}
	return nil
}
