package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/policyrag/policyrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.policyrag/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".policyrag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ProductStore returns a driven.ProductStore backed by this store.
func (s *Store) ProductStore() driven.ProductStore {
	return &productStore{store: s}
}

// DocumentStore returns a driven.DocumentStore backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// RateTableStore returns a driven.RateTableStore backed by this store.
func (s *Store) RateTableStore() driven.RateTableStore {
	return &rateTableStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Product Store ====================

type productStore struct {
	store *Store
}

var _ driven.ProductStore = (*productStore)(nil)

func (s *productStore) Save(ctx context.Context, p *domain.Product) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO products (id, product_code, name, company, category, publish_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_code = excluded.product_code,
			name = excluded.name,
			company = excluded.company,
			category = excluded.category,
			publish_time = excluded.publish_time
	`, p.ID, p.ProductCode, p.Name, p.Company, p.Category, p.PublishTime)
	if err != nil {
		return fmt.Errorf("saving product: %w", err)
	}
	return nil
}

func (s *productStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, product_code, name, company, category, publish_time
		FROM products WHERE id = ?
	`, id)
	return scanProduct(row)
}

func (s *productStore) GetByCode(ctx context.Context, company, productCode string) (*domain.Product, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, product_code, name, company, category, publish_time
		FROM products WHERE company = ? AND product_code = ?
	`, company, productCode)
	return scanProduct(row)
}

func (s *productStore) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, product_code, name, company, category, publish_time FROM products
	`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p domain.Product
		var category sql.NullString
		var publishTime sql.NullTime
		if err := rows.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Company, &category, &publishTime); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		p.Category = category.String
		if publishTime.Valid {
			p.PublishTime = publishTime.Time
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	var category sql.NullString
	var publishTime sql.NullTime
	if err := row.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Company, &category, &publishTime); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	p.Category = category.String
	if publishTime.Valid {
		p.PublishTime = publishTime.Time
	}
	return &p, nil
}

// ==================== Document Store ====================

type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

func (s *documentStore) Save(ctx context.Context, d *domain.PolicyDocument) error {
	pdfLinksJSON, err := json.Marshal(d.PDFLinks)
	if err != nil {
		return fmt.Errorf("marshalling pdf links: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO policy_documents
			(id, product_id, doc_type, filename, local_path, source_url, file_hash,
			 file_size, downloaded_at, verification_status, reviewer_notes, pdf_links)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_id = excluded.product_id,
			doc_type = excluded.doc_type,
			filename = excluded.filename,
			local_path = excluded.local_path,
			source_url = excluded.source_url,
			file_hash = excluded.file_hash,
			file_size = excluded.file_size,
			downloaded_at = excluded.downloaded_at,
			verification_status = excluded.verification_status,
			reviewer_notes = excluded.reviewer_notes,
			pdf_links = excluded.pdf_links
	`, d.ID, d.ProductID, string(d.DocType), d.Filename, d.LocalPath, d.SourceURL, d.FileHash,
		d.FileSize, d.DownloadedAt, string(d.VerificationStatus), d.ReviewerNotes, string(pdfLinksJSON))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (s *documentStore) Get(ctx context.Context, id string) (*domain.PolicyDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, product_id, doc_type, filename, local_path, source_url, file_hash,
		       file_size, downloaded_at, verification_status, reviewer_notes, pdf_links
		FROM policy_documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

func (s *documentStore) ListByProduct(ctx context.Context, productID string) ([]domain.PolicyDocument, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, product_id, doc_type, filename, local_path, source_url, file_hash,
		       file_size, downloaded_at, verification_status, reviewer_notes, pdf_links
		FROM policy_documents WHERE product_id = ?
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying documents by product: %w", err)
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (s *documentStore) ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.PolicyDocument, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, product_id, doc_type, filename, local_path, source_url, file_hash,
		       file_size, downloaded_at, verification_status, reviewer_notes, pdf_links
		FROM policy_documents WHERE verification_status = ?
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("querying documents by status: %w", err)
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

func (s *documentStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM policy_documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

func scanDocument(row *sql.Row) (*domain.PolicyDocument, error) {
	var d domain.PolicyDocument
	var docType, status string
	var filename, localPath, sourceURL, fileHash, reviewerNotes sql.NullString
	var fileSize sql.NullInt64
	var downloadedAt sql.NullTime
	var pdfLinksJSON sql.NullString

	if err := row.Scan(&d.ID, &d.ProductID, &docType, &filename, &localPath, &sourceURL, &fileHash,
		&fileSize, &downloadedAt, &status, &reviewerNotes, &pdfLinksJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return applyDocumentScan(&d, docType, status, filename, localPath, sourceURL, fileHash,
		fileSize, downloadedAt, reviewerNotes, pdfLinksJSON)
}

func scanDocumentRows(rows *sql.Rows) ([]domain.PolicyDocument, error) {
	var docs []domain.PolicyDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var d domain.PolicyDocument
		var docType, status string
		var filename, localPath, sourceURL, fileHash, reviewerNotes sql.NullString
		var fileSize sql.NullInt64
		var downloadedAt sql.NullTime
		var pdfLinksJSON sql.NullString

		if err := rows.Scan(&d.ID, &d.ProductID, &docType, &filename, &localPath, &sourceURL, &fileHash,
			&fileSize, &downloadedAt, &status, &reviewerNotes, &pdfLinksJSON); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := applyDocumentScan(&d, docType, status, filename, localPath, sourceURL, fileHash,
			fileSize, downloadedAt, reviewerNotes, pdfLinksJSON)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func applyDocumentScan(
	d *domain.PolicyDocument,
	docType, status string,
	filename, localPath, sourceURL, fileHash sql.NullString,
	fileSize sql.NullInt64,
	downloadedAt sql.NullTime,
	reviewerNotes, pdfLinksJSON sql.NullString,
) (*domain.PolicyDocument, error) {
	d.DocType = domain.DocType(docType)
	d.VerificationStatus = domain.VerificationStatus(status)
	d.Filename = filename.String
	d.LocalPath = localPath.String
	d.SourceURL = sourceURL.String
	d.FileHash = fileHash.String
	d.FileSize = fileSize.Int64
	d.ReviewerNotes = reviewerNotes.String
	if downloadedAt.Valid {
		d.DownloadedAt = downloadedAt.Time
	}
	if pdfLinksJSON.Valid && pdfLinksJSON.String != "" && pdfLinksJSON.String != "null" {
		if err := json.Unmarshal([]byte(pdfLinksJSON.String), &d.PDFLinks); err != nil {
			return nil, fmt.Errorf("unmarshaling pdf links: %w", err)
		}
	}
	return d, nil
}

// ==================== Rate Table Store ====================

type rateTableStore struct {
	store *Store
}

var _ driven.RateTableStore = (*rateTableStore)(nil)

func (s *rateTableStore) Save(ctx context.Context, rt *domain.RateTable) error {
	headersJSON, err := json.Marshal(rt.Headers)
	if err != nil {
		return fmt.Errorf("marshalling headers: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO rate_tables
			(uuid, document_id, page_start, page_end, headers, row_count, col_count,
			 csv_path, product_code, table_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			document_id = excluded.document_id,
			page_start = excluded.page_start,
			page_end = excluded.page_end,
			headers = excluded.headers,
			row_count = excluded.row_count,
			col_count = excluded.col_count,
			csv_path = excluded.csv_path,
			product_code = excluded.product_code,
			table_type = excluded.table_type,
			created_at = excluded.created_at
	`, rt.UUID, rt.DocumentID, rt.PageStart, rt.PageEnd, string(headersJSON), rt.RowCount, rt.ColCount,
		rt.CSVPath, rt.ProductCode, string(rt.TableType), rt.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving rate table: %w", err)
	}
	return nil
}

func (s *rateTableStore) Get(ctx context.Context, uuid string) (*domain.RateTable, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT uuid, document_id, page_start, page_end, headers, row_count, col_count,
		       csv_path, product_code, table_type, created_at
		FROM rate_tables WHERE uuid = ?
	`, uuid)
	return scanRateTable(row)
}

func (s *rateTableStore) ListByDocument(ctx context.Context, documentID string) ([]domain.RateTable, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT uuid, document_id, page_start, page_end, headers, row_count, col_count,
		       csv_path, product_code, table_type, created_at
		FROM rate_tables WHERE document_id = ?
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying rate tables: %w", err)
	}
	defer rows.Close()

	var tables []domain.RateTable //nolint:prealloc // size unknown from query
	for rows.Next() {
		rt, err := scanRateTableRows(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rate tables: %w", err)
	}
	return tables, nil
}

func (s *rateTableStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM rate_tables WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting rate tables: %w", err)
	}
	return nil
}

func scanRateTable(row *sql.Row) (*domain.RateTable, error) {
	var rt domain.RateTable
	var tableType string
	var headersJSON sql.NullString
	var createdAt sql.NullTime

	if err := row.Scan(&rt.UUID, &rt.DocumentID, &rt.PageStart, &rt.PageEnd, &headersJSON, &rt.RowCount,
		&rt.ColCount, &rt.CSVPath, &rt.ProductCode, &tableType, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning rate table: %w", err)
	}
	return applyRateTableScan(&rt, tableType, headersJSON, createdAt)
}

func scanRateTableRows(rows *sql.Rows) (*domain.RateTable, error) {
	var rt domain.RateTable
	var tableType string
	var headersJSON sql.NullString
	var createdAt sql.NullTime

	if err := rows.Scan(&rt.UUID, &rt.DocumentID, &rt.PageStart, &rt.PageEnd, &headersJSON, &rt.RowCount,
		&rt.ColCount, &rt.CSVPath, &rt.ProductCode, &tableType, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning rate table: %w", err)
	}
	return applyRateTableScan(&rt, tableType, headersJSON, createdAt)
}

func applyRateTableScan(rt *domain.RateTable, tableType string, headersJSON sql.NullString, createdAt sql.NullTime) (*domain.RateTable, error) {
	rt.TableType = domain.TableType(tableType)
	if createdAt.Valid {
		rt.CreatedAt = createdAt.Time
	}
	if headersJSON.Valid && headersJSON.String != "" && headersJSON.String != "null" {
		if err := json.Unmarshal([]byte(headersJSON.String), &rt.Headers); err != nil {
			return nil, fmt.Errorf("unmarshaling headers: %w", err)
		}
	}
	return rt, nil
}
