package nirasdk

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
)

const apiGroups = "api/groups"

var ErrNoGroupUUID = errors.New("sdk: group uuid is required")

type Group struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

type createGroupParams struct {
	Name string `json:"name"`
}

type GroupsAPI struct {
	t *transport
}

func newGroupsAPI(t *transport) *GroupsAPI {
	return &GroupsAPI{t: t}
}

func (g *GroupsAPI) List(ctx context.Context, query map[string]string) ([]Group, error) {
	r, err := g.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var groups []Group
	resp, err := r.SetQueryParams(query).SetSuccessResult(&groups).Get(apiGroups)
	if err := handleAPIError(resp, err, "list groups"); err != nil {
		return nil, err
	}

	return groups, nil
}

// Get returns the raw group document, members included.
func (g *GroupsAPI) Get(ctx context.Context, groupUUID string) (json.RawMessage, error) {
	if groupUUID == "" {
		return nil, ErrNoGroupUUID
	}

	r, err := g.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	resp, err := r.SetPathParam("uuid", groupUUID).SetSuccessResult(&result).Get(apiGroups + "/{uuid}")
	if err := handleAPIError(resp, err, "get group"); err != nil {
		return nil, err
	}

	return result, nil
}

func (g *GroupsAPI) Create(ctx context.Context, name string) (*Group, error) {
	r, err := g.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var group Group
	resp, err := r.SetBody(&createGroupParams{Name: name}).SetSuccessResult(&group).Post(apiGroups)
	if err := handleAPIError(resp, err, "create group"); err != nil {
		return nil, err
	}

	return &group, nil
}

func (g *GroupsAPI) Delete(ctx context.Context, groupUUID string) (json.RawMessage, error) {
	if groupUUID == "" {
		return nil, ErrNoGroupUUID
	}

	r, err := g.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	resp, err := r.SetPathParam("uuid", groupUUID).SetSuccessResult(&result).Delete(apiGroups + "/{uuid}")
	if err := handleAPIError(resp, err, "delete group"); err != nil {
		return nil, err
	}

	return result, nil
}
