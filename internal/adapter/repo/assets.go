package repo

import (
	"context"

	"genengine/internal/domain"
	"genengine/internal/infra"
	"genengine/internal/sqlinline"
)

// AssetRepo persists generated artifacts in generated_assets.
type AssetRepo struct {
	sql infra.SQLExecutor
}

func NewAssetRepo(sql infra.SQLExecutor) *AssetRepo {
	return &AssetRepo{sql: sql}
}

// Insert records one generated asset row and returns its id.
func (r *AssetRepo) Insert(ctx context.Context, asset domain.StoredAsset) (string, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertAsset,
		asset.RequestID,
		asset.VariantIndex,
		asset.Platform,
		asset.AspectRatio,
		asset.StorageKey,
		asset.MIME,
		asset.Bytes,
		asset.Width,
		asset.Height,
		asset.Attempts,
		asset.ThresholdMet,
		asset.Corrected,
		asset.Properties,
	)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// List returns assets newest first, optionally filtered to one request.
// An empty requestID lists across all requests.
func (r *AssetRepo) List(ctx context.Context, requestID string, limit, offset int) ([]domain.StoredAsset, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var filter any
	if requestID != "" {
		filter = requestID
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListAssets, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssets(rows)
}

// Get loads one asset by id.
func (r *AssetRepo) Get(ctx context.Context, id string) (*domain.StoredAsset, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAssetByID, id)
	asset, err := scanAsset(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return asset, nil
}

// ListByRequest returns every asset of a request in variant order, for
// bundling.
func (r *AssetRepo) ListByRequest(ctx context.Context, requestID string) ([]domain.StoredAsset, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRequestAssets, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssets(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.StoredAsset, error) {
	var a domain.StoredAsset
	err := row.Scan(&a.ID, &a.RequestID, &a.VariantIndex, &a.Platform, &a.AspectRatio,
		&a.StorageKey, &a.MIME, &a.Bytes, &a.Width, &a.Height,
		&a.Attempts, &a.ThresholdMet, &a.Corrected, &a.Properties, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type iterRows interface {
	rowScanner
	Next() bool
	Err() error
}

func collectAssets(rows iterRows) ([]domain.StoredAsset, error) {
	var out []domain.StoredAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
