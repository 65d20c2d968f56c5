package nirasdk

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"
)

const apiAssets = "api/assets"

type AssetsAPI struct {
	t *transport
}

func newAssetsAPI(t *transport) *AssetsAPI {
	return &AssetsAPI{t: t}
}

func (a *AssetsAPI) List(ctx context.Context, params *ListAssetsParams) ([]Asset, error) {
	r, err := a.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var assets []Asset
	resp, err := r.SetQueryParams(params.query()).SetSuccessResult(&assets).Get(apiAssets)
	if err := handleAPIError(resp, err, "list assets"); err != nil {
		return nil, err
	}

	return assets, nil
}

// FindByName returns nil without error when no asset has that exact name.
func (a *AssetsAPI) FindByName(ctx context.Context, name string) (*Asset, error) {
	assets, err := a.List(ctx, &ListAssetsParams{Name: name})
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i], nil
		}
	}
	return nil, nil
}

// Get accepts the numeric asset id from a job or a short uuid.
func (a *AssetsAPI) Get(ctx context.Context, id string) (*Asset, error) {
	r, err := a.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var asset Asset
	resp, err := r.SetPathParam("id", id).SetSuccessResult(&asset).Get(apiAssets + "/{id}")
	if err := handleAPIError(resp, err, "get asset"); err != nil {
		return nil, err
	}

	return &asset, nil
}

func (a *AssetsAPI) Delete(ctx context.Context, shortUUID string) error {
	r, err := a.t.request(ctx)
	if err != nil {
		return err
	}

	resp, err := r.SetPathParam("suuid", shortUUID).Delete(apiAssets + "/{suuid}")
	return handleAPIError(resp, err, "delete asset")
}

// DeleteBefore removes assets created before the given ISO date. Without
// confirm the server only reports what would be deleted.
func (a *AssetsAPI) DeleteBefore(ctx context.Context, before string, confirm bool) (json.RawMessage, error) {
	r, err := a.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	resp, err := r.
		SetQueryParam("before", before).
		SetQueryParam("confirm", strconv.FormatBool(confirm)).
		SetSuccessResult(&result).
		Delete(apiAssets)
	if err := handleAPIError(resp, err, "delete assets before "+before); err != nil {
		return nil, err
	}

	return result, nil
}

func (a *AssetsAPI) ShareWithUser(ctx context.Context, shortUUID string, params *ShareAssetParams) (json.RawMessage, error) {
	r, err := a.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	resp, err := r.
		SetPathParam("suuid", shortUUID).
		SetBody(params).
		SetSuccessResult(&result).
		Post(apiAssets + "/{suuid}/sharing/users")
	if err := handleAPIError(resp, err, "share asset"); err != nil {
		return nil, err
	}

	return result, nil
}

func (a *AssetsAPI) SetPublic(ctx context.Context, shortUUID string, public bool) (json.RawMessage, error) {
	r, err := a.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	resp, err := r.
		SetPathParam("suuid", shortUUID).
		SetBody(&setPublicParams{IsPublic: public}).
		SetSuccessResult(&result).
		Patch(apiAssets + "/{suuid}/sharing")
	if err := handleAPIError(resp, err, "set asset public"); err != nil {
		return nil, err
	}

	return result, nil
}
