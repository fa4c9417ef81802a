package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// pointNamespace deterministically maps a PolicyChunk.ID (not itself a
// UUID - see services.chunkID) onto the UUID Qdrant requires as a point
// identifier. The original id is kept verbatim in the "chunk_id" payload
// field and is what callers see back out of Query/GetByIDs.
var pointNamespace = uuid.MustParse("6f6e5f8a-3b1e-4f6b-8f0f-2f6b9a7d5e31")

func pointUUID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// Config holds connection and schema parameters for a Qdrant-backed vector store.
type Config struct {
	// Addr is the gRPC address of the Qdrant instance, e.g. "localhost:6334".
	Addr string

	// CollectionName is the Qdrant collection to use.
	CollectionName string

	// Dimension is the embedding vector size, fixed for the collection's lifetime.
	Dimension int
}

// pointsClient and collectionsClient are the subset of pb.PointsClient /
// pb.CollectionsClient Store depends on, narrowed so tests can substitute
// hand-written fakes instead of a real gRPC server.
type pointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Get(ctx context.Context, in *pb.GetPoints, opts ...grpc.CallOption) (*pb.GetResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

type collectionsClient interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store implements driven.VectorStore against a single Qdrant collection.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsClient
	collections collectionsClient
	collection  string
	dim         int
}

// New dials addr and ensures cfg.CollectionName exists with a Cosine-distance
// vector of cfg.Dimension, creating it if absent.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("qdrant vectorstore: addr is required")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("qdrant vectorstore: collection name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("qdrant vectorstore: dimension must be positive")
	}

	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant vectorstore: dial %s: %w", cfg.Addr, err)
	}

	s := &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.CollectionName,
		dim:         cfg.Dimension,
	}

	if err := s.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// NewWithClients builds a Store around already-constructed clients,
// bypassing the gRPC dial. Exposed for tests.
func NewWithClients(points pointsClient, collections collectionsClient, collection string, dim int) *Store {
	return &Store{points: points, collections: collections, collection: collection, dim: dim}
}

// Close closes the underlying gRPC connection, if any.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) ensureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant vectorstore: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dim),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant vectorstore: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert writes each chunk as a point keyed by a UUID derived from its id.
func (s *Store) Upsert(ctx context.Context, chunks []domain.PolicyChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		payload, err := chunkToPayload(c)
		if err != nil {
			return fmt.Errorf("qdrant vectorstore: encode chunk %s: %w", c.ID, err)
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointUUID(c.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Embedding}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant vectorstore: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Delete removes every point matching filters via a server-side filter
// selector, never touching points outside the match.
func (s *Store) Delete(ctx context.Context, filters domain.Filters) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: buildFilter(filters)},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant vectorstore: delete: %w", err)
	}
	return nil
}

// Query runs a k-NN similarity search, restricted to filters. Qdrant's
// Cosine distance score is already a similarity (higher is better), so no
// conversion is needed, unlike the RediSearch backend's raw distance.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filters domain.Filters) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Filter:         buildFilter(filters),
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant vectorstore: query: %w", err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		chunk, err := payloadToChunk(r.GetPayload(), r.GetVectors())
		if err != nil {
			continue
		}
		hits = append(hits, driven.VectorHit{Chunk: chunk, Similarity: float64(r.GetScore())})
	}
	return hits, nil
}

// GetByIDs fetches points directly by the UUID derived from each id,
// silently skipping ids with no stored point.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]domain.PolicyChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*pb.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointUUID(id)}}
	}

	resp, err := s.points.Get(ctx, &pb.GetPoints{
		CollectionName: s.collection,
		Ids:            pointIDs,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant vectorstore: get by ids: %w", err)
	}

	chunks := make([]domain.PolicyChunk, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		chunk, err := payloadToChunk(r.GetPayload(), r.GetVectors())
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Stats reports the collection's point count via a filterless Count, plus
// the store's fixed dimension/metric.
func (s *Store) Stats(ctx context.Context) (driven.VectorStoreStats, error) {
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection})
	if err != nil {
		return driven.VectorStoreStats{}, fmt.Errorf("qdrant vectorstore: count: %w", err)
	}

	return driven.VectorStoreStats{
		Count:          int(resp.GetResult().GetCount()),
		Dimension:      s.dim,
		DistanceMetric: "COSINE",
	}, nil
}

// --- payload encoding ---

func chunkToPayload(c domain.PolicyChunk) (map[string]*pb.Value, error) {
	payload := map[string]*pb.Value{
		"chunk_id":       strValue(c.ID),
		"document_id":    strValue(c.DocumentID),
		"chunk_index":    intValue(c.ChunkIndex),
		"content":        strValue(c.Content),
		"company":        strValue(c.Company),
		"product_code":   strValue(c.ProductCode),
		"product_name":   strValue(c.ProductName),
		"doc_type":       strValue(string(c.DocType)),
		"section_id":     strValue(c.SectionID),
		"section_title":  strValue(c.SectionTitle),
		"parent_section": strValue(c.ParentSection),
		"level":          intValue(c.Level),
		"section_path":   strValue(c.SectionPath),
		"category":       strValue(string(c.Category)),
		"entity_role":    strValue(string(c.EntityRole)),
		"keywords":       strValue(c.KeywordsCSV()),
		"is_table":       boolValue(c.IsTable),
		"table_refs":     strValue(c.TableRefsCSV()),
	}
	if c.PageNumber != nil {
		payload["page_number"] = intValue(*c.PageNumber)
	}
	if c.IsTable && c.TableData != nil {
		headers := make([]*pb.Value, len(c.TableData.Headers))
		for i, h := range c.TableData.Headers {
			headers[i] = strValue(h)
		}
		payload["table_headers"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: headers}}}

		rows := make([]*pb.Value, len(c.TableData.Rows))
		for i, row := range c.TableData.Rows {
			fields := make(map[string]*pb.Value, len(row))
			for k, v := range row {
				fields[k] = strValue(v)
			}
			rows[i] = &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}
		}
		payload["table_rows"] = &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: rows}}}
	}
	return payload, nil
}

func payloadToChunk(payload map[string]*pb.Value, vectors *pb.VectorsOutput) (domain.PolicyChunk, error) {
	c := domain.PolicyChunk{
		ID:            payload["chunk_id"].GetStringValue(),
		DocumentID:    payload["document_id"].GetStringValue(),
		ChunkIndex:    int(payload["chunk_index"].GetIntegerValue()),
		Content:       payload["content"].GetStringValue(),
		Company:       payload["company"].GetStringValue(),
		ProductCode:   payload["product_code"].GetStringValue(),
		ProductName:   payload["product_name"].GetStringValue(),
		DocType:       domain.DocType(payload["doc_type"].GetStringValue()),
		SectionID:     payload["section_id"].GetStringValue(),
		SectionTitle:  payload["section_title"].GetStringValue(),
		ParentSection: payload["parent_section"].GetStringValue(),
		Level:         int(payload["level"].GetIntegerValue()),
		SectionPath:   payload["section_path"].GetStringValue(),
		Category:      domain.Category(payload["category"].GetStringValue()),
		EntityRole:    domain.EntityRole(payload["entity_role"].GetStringValue()),
		Keywords:      domain.ParseKeywordsCSV(payload["keywords"].GetStringValue()),
		IsTable:       payload["is_table"].GetBoolValue(),
		TableRefs:     domain.ParseTableRefsCSV(payload["table_refs"].GetStringValue()),
	}

	if v, ok := payload["page_number"]; ok {
		n := int(v.GetIntegerValue())
		c.PageNumber = &n
	}

	if c.IsTable {
		if headersVal, ok := payload["table_headers"]; ok {
			list := headersVal.GetListValue().GetValues()
			headers := make([]string, len(list))
			for i, v := range list {
				headers[i] = v.GetStringValue()
			}
			rowsVal := payload["table_rows"].GetListValue().GetValues()
			rows := make([]domain.TableRow, len(rowsVal))
			for i, v := range rowsVal {
				row := make(domain.TableRow)
				for k, fv := range v.GetStructValue().GetFields() {
					row[k] = fv.GetStringValue()
				}
				rows[i] = row
			}
			c.TableData = &domain.TableData{Headers: headers, Rows: rows}
		}
	}

	if vectors != nil {
		if vec := vectors.GetVector(); vec != nil {
			c.Embedding = vec.GetData()
		}
	}

	return c, nil
}

func strValue(s string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}} }
func intValue(n int) *pb.Value    { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}} }
func boolValue(b bool) *pb.Value  { return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: b}} }

// --- filter building ---

func buildFilter(f domain.Filters) *pb.Filter {
	var must []*pb.Condition
	if f.DocumentID != "" {
		must = append(must, keywordMatch("document_id", f.DocumentID))
	}
	if f.Company != "" {
		must = append(must, keywordMatch("company", f.Company))
	}
	if f.ProductCode != "" {
		must = append(must, keywordMatch("product_code", f.ProductCode))
	}
	if f.ProductName != "" {
		must = append(must, keywordMatch("product_name", f.ProductName))
	}
	if f.DocType != "" {
		must = append(must, keywordMatch("doc_type", string(f.DocType)))
	}
	if f.Category != "" {
		must = append(must, keywordMatch("category", string(f.Category)))
	}
	if f.IsTable != nil {
		must = append(must, boolMatch("is_table", *f.IsTable))
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func boolMatch(key string, value bool) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: value}},
			},
		},
	}
}
