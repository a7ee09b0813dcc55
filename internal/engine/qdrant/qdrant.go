// Package qdrant binds the engine capability to Qdrant over its gRPC API.
//
// Qdrant keys points by unsigned integers and builds its own HNSW graph,
// so negative primary keys are refused and BuildIndex only checks that the
// collection and field are present.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"sync"

	"vectorhub/internal/engine"
	pkgerrors "vectorhub/pkg/errors"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const Name = "qdrant"

// DefaultPort is Qdrant's gRPC port.
const DefaultPort = 6334

type Engine struct {
	mu          sync.RWMutex
	conn        *grpc.ClientConn
	health      pb.QdrantClient
	collections pb.CollectionsClient
	points      pb.PointsClient
}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string { return Name }

// Open dials the server and performs a health check, since gRPC
// connections are established lazily.
func (e *Engine) Open(ctx context.Context, params engine.ConnectParams) error {
	addr := fmt.Sprintf("%s:%d", params.Host, params.Port)
	creds := insecure.NewCredentials()
	if params.TLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if params.Password != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(params.Password)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return pkgerrors.Connection("open", "", err, "qdrant connect %s", addr)
	}
	return e.attach(ctx, conn)
}

// OpenConn attaches an existing client connection.
func (e *Engine) OpenConn(ctx context.Context, conn *grpc.ClientConn) error {
	return e.attach(ctx, conn)
}

func (e *Engine) attach(ctx context.Context, conn *grpc.ClientConn) error {
	health := pb.NewQdrantClient(conn)
	if _, err := health.HealthCheck(ctx, &pb.HealthCheckRequest{}); err != nil {
		_ = conn.Close()
		return pkgerrors.Connection("open", "", err, "qdrant health check")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.conn = conn
	e.health = health
	e.collections = pb.NewCollectionsClient(conn)
	e.points = pb.NewPointsClient(conn)
	return nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn, e.health, e.collections, e.points = nil, nil, nil, nil
	return err
}

func (e *Engine) clients(op, collection string) (pb.CollectionsClient, pb.PointsClient, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.conn == nil {
		return nil, nil, pkgerrors.Connection(op, collection, pkgerrors.ErrHandleClosed, "qdrant session is not open")
	}
	return e.collections, e.points, nil
}

func (e *Engine) Exists(ctx context.Context, collection string) (bool, error) {
	cc, _, err := e.clients("exists", collection)
	if err != nil {
		return false, err
	}
	resp, err := cc.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: collection})
	if err != nil {
		return false, classify("exists", collection, err)
	}
	return resp.GetResult().GetExists(), nil
}

// Create stores the vector field as a named vector so Describe can recover
// it. The primary key is the point id and always reads back as "id".
func (e *Engine) Create(ctx context.Context, collection string, schema engine.Schema) error {
	cc, _, err := e.clients("create", collection)
	if err != nil {
		return err
	}
	_, err = cc.Create(ctx, &pb.CreateCollection{
		CollectionName: collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_ParamsMap{
			ParamsMap: &pb.VectorParamsMap{Map: map[string]*pb.VectorParams{
				schema.VectorField: {
					Size:     uint64(schema.Dimension),
					Distance: pb.Distance_Euclid,
				},
			}},
		}},
	})
	if err != nil {
		return classify("create", collection, err)
	}
	return nil
}

func (e *Engine) Drop(ctx context.Context, collection string) error {
	cc, _, err := e.clients("drop", collection)
	if err != nil {
		return err
	}
	resp, err := cc.Delete(ctx, &pb.DeleteCollection{CollectionName: collection})
	if err != nil {
		return classify("drop", collection, err)
	}
	if !resp.GetResult() {
		return pkgerrors.NotFound("drop", collection, nil, "qdrant reported nothing deleted")
	}
	return nil
}

func (e *Engine) Describe(ctx context.Context, collection string) (engine.Schema, error) {
	cc, _, err := e.clients("describe", collection)
	if err != nil {
		return engine.Schema{}, err
	}
	resp, err := cc.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: collection})
	if err != nil {
		return engine.Schema{}, classify("describe", collection, err)
	}
	vc := resp.GetResult().GetConfig().GetParams().GetVectorsConfig()
	params := vc.GetParamsMap().GetMap()
	if len(params) != 1 {
		return engine.Schema{}, pkgerrors.Rejected("describe", collection, pkgerrors.ErrInvalidSchema,
			"expected exactly one named vector, got %d", len(params))
	}

	out := engine.Schema{PrimaryField: engine.DefaultPrimaryField}
	for field, p := range params {
		if p.GetDistance() != pb.Distance_Euclid {
			return engine.Schema{}, pkgerrors.Rejected("describe", collection, pkgerrors.ErrInvalidSchema,
				"distance %s is not euclidean", p.GetDistance())
		}
		out.VectorField, out.Dimension = field, int(p.GetSize())
	}
	if err := out.Validate(); err != nil {
		return engine.Schema{}, pkgerrors.Rejected("describe", collection, err, "unsupported collection layout")
	}
	return out, nil
}

func (e *Engine) List(ctx context.Context) ([]string, error) {
	cc, _, err := e.clients("list", "")
	if err != nil {
		return nil, err
	}
	resp, err := cc.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, classify("list", "", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		names = append(names, c.GetName())
	}
	sort.Strings(names)
	return names, nil
}

func (e *Engine) BuildIndex(ctx context.Context, collection string, spec engine.IndexSpec) error {
	schema, err := e.Describe(ctx, collection)
	if err != nil {
		return err
	}
	if schema.VectorField != spec.Field {
		return pkgerrors.NotFound("build_index", collection, pkgerrors.ErrFieldNotFound, "field %q", spec.Field)
	}
	return nil
}

func (e *Engine) Insert(ctx context.Context, collection string, schema engine.Schema, records []engine.Record) (int, error) {
	_, pc, err := e.clients("insert", collection)
	if err != nil {
		return 0, err
	}
	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		if r.ID < 0 {
			return 0, pkgerrors.Validation("insert", collection, nil, "qdrant point ids must not be negative, got %d", r.ID)
		}
		payload, err := toPayload(r.Attributes)
		if err != nil {
			return 0, pkgerrors.Validation("insert", collection, err, "record %d attributes", r.ID)
		}
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(r.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vectors{
				Vectors: &pb.NamedVectors{Vectors: map[string]*pb.Vector{
					schema.VectorField: {Data: r.Vector},
				}},
			}},
			Payload: payload,
		}
	}

	wait := true
	resp, err := pc.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, classify("insert", collection, err)
	}
	if st := resp.GetResult().GetStatus(); st != pb.UpdateStatus_Completed && st != pb.UpdateStatus_Acknowledged {
		return 0, pkgerrors.Rejected("insert", collection, nil, "update status %s", st)
	}
	return len(points), nil
}

func (e *Engine) Search(ctx context.Context, collection string, schema engine.Schema, query []float32, topK int) ([]engine.Hit, error) {
	_, pc, err := e.clients("search", collection)
	if err != nil {
		return nil, err
	}
	field := schema.VectorField
	resp, err := pc.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         query,
		VectorName:     &field,
		Limit:          uint64(topK),
	})
	if err != nil {
		return nil, classify("search", collection, err)
	}
	hits := make([]engine.Hit, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		hits = append(hits, engine.Hit{ID: int64(pt.GetId().GetNum()), Distance: pt.GetScore()})
	}
	return hits, nil
}
