package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration.
const (
	DefaultIndexName = "policyrag_chunks"
	DefaultKeyPrefix = "policyrag:chunk:"
)

// Config holds connection and schema parameters for a Redis-backed vector store.
type Config struct {
	// Addrs is the list of Redis node addresses (required).
	Addrs []string

	Username string
	Password string
	DB       int

	// IndexName is the RediSearch index name (default "policyrag_chunks").
	IndexName string

	// KeyPrefix prefixes every chunk hash key (default "policyrag:chunk:").
	KeyPrefix string

	// Dimension is the embedding vector size. Required; the index schema is
	// fixed to this dimension for the lifetime of the index.
	Dimension int
}

// Store implements driven.VectorStore via rueidis against Redis 8's
// RediSearch module.
type Store struct {
	client rueidis.Client
	index  string
	prefix string
	dim    int
}

// NewStore connects to Redis and ensures the RediSearch index exists,
// creating it (idempotently) against cfg.Dimension if absent.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis vectorstore: addrs is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("redis vectorstore: dimension must be positive")
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("redis vectorstore: new client: %w", err)
	}

	s := &Store{client: client, index: cfg.IndexName, prefix: cfg.KeyPrefix, dim: cfg.Dimension}
	if err := s.ensureIndex(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// Close shuts down the underlying client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// ensureIndex issues FT.CREATE for the chunk schema, treating "already
// exists" as success.
func (s *Store) ensureIndex(ctx context.Context) error {
	args := []string{
		s.index, "ON", "HASH", "PREFIX", "1", s.prefix, "SCHEMA",
		"content", "TEXT",
		"document_id", "TAG",
		"company", "TAG",
		"product_code", "TAG",
		"product_name", "TAG",
		"doc_type", "TAG",
		"category", "TAG",
		"entity_role", "TAG",
		"is_table", "TAG",
		"chunk_index", "NUMERIC",
		"level", "NUMERIC",
		"page_number", "NUMERIC",
		"vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("redis vectorstore: create index: %w", err)
	}
	return nil
}

// Upsert writes each chunk as a hash, batched in a single round-trip.
func (s *Store) Upsert(ctx context.Context, chunks []domain.PolicyChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(chunks))
	for i, c := range chunks {
		fields, err := chunkToFields(c)
		if err != nil {
			return fmt.Errorf("redis vectorstore: encode chunk %s: %w", c.ID, err)
		}
		cmd := s.b().Hset().Key(s.key(c.ID)).FieldValue()
		for k, v := range fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds[i] = cmd.Build()
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("redis vectorstore: upsert chunk %s: %w", chunks[i].ID, err)
		}
	}
	return nil
}

// Delete removes every chunk matching filters. Since deletion must target
// hash keys rather than the vector field, it first resolves matches via
// FT.SEARCH NOCONTENT, then deletes them by key.
func (s *Store) Delete(ctx context.Context, filters domain.Filters) error {
	queryStr := buildFilterQuery(filters)
	if queryStr == "" {
		queryStr = "*"
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.index, queryStr, "NOCONTENT", "LIMIT", "0", "10000").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return fmt.Errorf("redis vectorstore: delete search: %w", err)
	}
	if len(raw) <= 1 {
		return nil
	}

	keys := make([]string, 0, len(raw)-1)
	for _, m := range raw[1:] {
		key, err := m.ToString()
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}

	delCmd := s.b().Del().Key(keys...).Build()
	if err := s.do(ctx, delCmd).Error(); err != nil {
		return fmt.Errorf("redis vectorstore: delete keys: %w", err)
	}
	return nil
}

// returnFields lists every hash field Query/GetByIDs needs to hydrate a
// domain.PolicyChunk.
var returnFields = []string{
	"document_id", "chunk_index", "content", "company", "product_code", "product_name",
	"doc_type", "section_id", "section_title", "parent_section", "level", "section_path",
	"page_number", "category", "entity_role", "keywords", "is_table", "table_data", "table_refs", "vector",
}

// Query runs a filtered KNN search via FT.SEARCH ... [KNN k @vector $BLOB].
func (s *Store) Query(ctx context.Context, vector []float32, k int, filters domain.Filters) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	filterStr := buildFilterQuery(filters)
	knnPart := fmt.Sprintf("[KNN %d @vector $BLOB]", k)

	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{s.index, queryStr}
	args = append(args, "RETURN", strconv.Itoa(len(returnFields)+1))
	args = append(args, returnFields...)
	args = append(args, "__vector_score")
	args = append(args, "PARAMS", "2", "BLOB", vectorToBytes(vector), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("redis vectorstore: query: %w", err)
	}
	if len(raw) <= 1 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fieldsArr, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldsArr)

		similarity := 0.0
		if scoreStr, ok := fields["__vector_score"]; ok {
			if dist, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				similarity = math.Max(0, 1.0-dist)
			}
			delete(fields, "__vector_score")
		}

		chunk, err := fieldsToChunk(strings.TrimPrefix(key, s.prefix), fields)
		if err != nil {
			continue
		}
		hits = append(hits, driven.VectorHit{Chunk: chunk, Similarity: similarity})
	}
	return hits, nil
}

// GetByIDs fetches chunk hashes directly, skipping any id with no hash.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]domain.PolicyChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.b().Hgetall().Key(s.key(id)).Build()
	}

	chunks := make([]domain.PolicyChunk, 0, len(ids))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil || len(m) == 0 {
			continue
		}
		chunk, err := fieldsToChunk(ids[i], m)
		if err != nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Stats reports index size via FT.SEARCH * LIMIT 0 0, plus the store's
// fixed dimension/metric.
func (s *Store) Stats(ctx context.Context) (driven.VectorStoreStats, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.index, "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return driven.VectorStoreStats{}, fmt.Errorf("redis vectorstore: stats: %w", err)
	}

	count := 0
	if len(raw) > 0 {
		if n, err := raw[0].AsInt64(); err == nil {
			count = int(n)
		}
	}

	return driven.VectorStoreStats{
		Count:          count,
		Dimension:      s.dim,
		DistanceMetric: "COSINE",
	}, nil
}

// --- field encoding ---

func chunkToFields(c domain.PolicyChunk) (map[string]string, error) {
	pageNumber := ""
	if c.PageNumber != nil {
		pageNumber = strconv.Itoa(*c.PageNumber)
	}

	tableData := ""
	if c.IsTable && c.TableData != nil {
		b, err := json.Marshal(c.TableData)
		if err != nil {
			return nil, err
		}
		tableData = string(b)
	}

	isTable := "0"
	if c.IsTable {
		isTable = "1"
	}

	return map[string]string{
		"document_id":    c.DocumentID,
		"chunk_index":    strconv.Itoa(c.ChunkIndex),
		"content":        c.Content,
		"company":        c.Company,
		"product_code":   c.ProductCode,
		"product_name":   c.ProductName,
		"doc_type":       string(c.DocType),
		"section_id":     c.SectionID,
		"section_title":  c.SectionTitle,
		"parent_section": c.ParentSection,
		"level":          strconv.Itoa(c.Level),
		"section_path":   c.SectionPath,
		"page_number":    pageNumber,
		"category":       string(c.Category),
		"entity_role":    string(c.EntityRole),
		"keywords":       c.KeywordsCSV(),
		"is_table":       isTable,
		"table_data":     tableData,
		"table_refs":     c.TableRefsCSV(),
		"vector":         vectorToBytes(c.Embedding),
	}, nil
}

func fieldsToChunk(id string, fields map[string]string) (domain.PolicyChunk, error) {
	c := domain.PolicyChunk{
		ID:            id,
		DocumentID:    fields["document_id"],
		Content:       fields["content"],
		Company:       fields["company"],
		ProductCode:   fields["product_code"],
		ProductName:   fields["product_name"],
		DocType:       domain.DocType(fields["doc_type"]),
		SectionID:     fields["section_id"],
		SectionTitle:  fields["section_title"],
		ParentSection: fields["parent_section"],
		SectionPath:   fields["section_path"],
		Category:      domain.Category(fields["category"]),
		EntityRole:    domain.EntityRole(fields["entity_role"]),
		Keywords:      domain.ParseKeywordsCSV(fields["keywords"]),
		TableRefs:     domain.ParseTableRefsCSV(fields["table_refs"]),
	}

	if v, err := strconv.Atoi(fields["chunk_index"]); err == nil {
		c.ChunkIndex = v
	}
	if v, err := strconv.Atoi(fields["level"]); err == nil {
		c.Level = v
	}
	if s := fields["page_number"]; s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			c.PageNumber = &v
		}
	}
	if fields["is_table"] == "1" {
		c.IsTable = true
		if td := fields["table_data"]; td != "" {
			var data domain.TableData
			if err := json.Unmarshal([]byte(td), &data); err == nil {
				c.TableData = &data
			}
		}
	}
	if vec := fields["vector"]; vec != "" {
		c.Embedding = bytesToVector(vec)
	}

	return c, nil
}

// --- filter/query helpers ---

func buildFilterQuery(f domain.Filters) string {
	var parts []string
	if f.DocumentID != "" {
		parts = append(parts, tagFilter("document_id", f.DocumentID))
	}
	if f.Company != "" {
		parts = append(parts, tagFilter("company", f.Company))
	}
	if f.ProductCode != "" {
		parts = append(parts, tagFilter("product_code", f.ProductCode))
	}
	if f.ProductName != "" {
		parts = append(parts, tagFilter("product_name", f.ProductName))
	}
	if f.DocType != "" {
		parts = append(parts, tagFilter("doc_type", string(f.DocType)))
	}
	if f.Category != "" {
		parts = append(parts, tagFilter("category", string(f.Category)))
	}
	if f.IsTable != nil {
		v := "0"
		if *f.IsTable {
			v = "1"
		}
		parts = append(parts, tagFilter("is_table", v))
	}
	return strings.Join(parts, " ")
}

func tagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^", "&", "\\&", "*", "\\*",
	"(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~", " ", "\\ ",
)

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	buf := []byte(s)
	if len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// isRedisErr checks if err is a Redis server error containing substr
// (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), substr)
}
