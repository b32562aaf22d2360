package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sydlexius/dirscope/internal/rpc"
)

// Backend command names.
const (
	CmdScanBatch = "scan_directory_batch"
	CmdScanAll   = "scan_directory"
	CmdBindings  = "get_bindings"
	CmdBind      = "bind_directory"
	CmdUnbind    = "unbind_directory"

	CmdCategoryTree      = "get_category_tree"
	CmdCreateCategory    = "create_category"
	CmdUpdateCategory    = "update_category"
	CmdDeleteCategory    = "delete_category"
	CmdReorderCategories = "reorder_categories"
)

// Client exposes the backend's directory commands with typed, validated
// requests and responses.
type Client struct {
	caller rpc.Caller
}

// NewClient creates a directory client on top of a command caller.
func NewClient(caller rpc.Caller) *Client {
	return &Client{caller: caller}
}

// call runs command and decodes the response into out. A body that is not
// JSON, or whose fields have the wrong JSON types, is a malformed response
// rather than a transport failure.
func (c *Client) call(ctx context.Context, command string, args any, out any) error {
	var raw json.RawMessage
	if err := c.caller.Call(ctx, command, args, &raw); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.Is(err, rpc.ErrUndecodable) || errors.As(err, &syntaxErr) {
			return malformed("%v", err)
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return malformed("%v", err)
	}
	return nil
}

type scanArgs struct {
	CategoryID        int64   `json:"categoryId"`
	ShowHidden        bool    `json:"showHidden"`
	IgnoreDirectories *string `json:"ignoreDirectories,omitempty"`
	BatchSize         *int    `json:"batchSize,omitempty"`
}

func newScanArgs(r ScanRequest) scanArgs {
	args := scanArgs{CategoryID: r.CategoryID, ShowHidden: r.ShowHidden}
	if len(r.IgnoreDirectories) > 0 {
		s := JoinIgnoreList(r.IgnoreDirectories)
		args.IgnoreDirectories = &s
	}
	return args
}

// ScanNextBatch requests the next slice of the category scan. The backend
// keeps the cursor; each call advances it.
func (c *Client) ScanNextBatch(ctx context.Context, req BatchRequest) (*ScanProgress, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	args := newScanArgs(req.ScanRequest)
	size := req.BatchSize
	args.BatchSize = &size

	var w wireProgress
	if err := c.call(ctx, CmdScanBatch, args, &w); err != nil {
		return nil, fmt.Errorf("scanning next batch for category %d: %w", req.CategoryID, err)
	}
	progress, err := w.toProgress()
	if err != nil {
		return nil, fmt.Errorf("scanning next batch for category %d: %w", req.CategoryID, err)
	}
	return progress, nil
}

// ScanAll runs a complete scan in a single round trip.
func (c *Client) ScanAll(ctx context.Context, req ScanRequest) ([]ResourceItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var ws []wireItem
	if err := c.call(ctx, CmdScanAll, newScanArgs(req), &ws); err != nil {
		return nil, fmt.Errorf("scanning category %d: %w", req.CategoryID, err)
	}
	items := make([]ResourceItem, 0, len(ws))
	for i := range ws {
		item, err := ws[i].toItem()
		if err != nil {
			return nil, fmt.Errorf("scanning category %d: item %d: %w", req.CategoryID, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Bindings lists the directories bound to a category.
func (c *Client) Bindings(ctx context.Context, categoryID int64) ([]DirectoryBinding, error) {
	if categoryID <= 0 {
		return nil, ErrInvalidCategory
	}
	var ws []wireBinding
	args := map[string]any{"categoryId": categoryID}
	if err := c.call(ctx, CmdBindings, args, &ws); err != nil {
		return nil, fmt.Errorf("listing bindings for category %d: %w", categoryID, err)
	}
	bindings := make([]DirectoryBinding, 0, len(ws))
	for i := range ws {
		b, err := ws[i].toBinding()
		if err != nil {
			return nil, fmt.Errorf("listing bindings for category %d: %w", categoryID, err)
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

// Bind registers path under the category and returns the new binding.
func (c *Client) Bind(ctx context.Context, categoryID int64, path string) (*DirectoryBinding, error) {
	if categoryID <= 0 {
		return nil, ErrInvalidCategory
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	var w wireBinding
	args := map[string]any{"categoryId": categoryID, "path": path}
	if err := c.call(ctx, CmdBind, args, &w); err != nil {
		return nil, fmt.Errorf("binding %s to category %d: %w", path, categoryID, err)
	}
	b, err := w.toBinding()
	if err != nil {
		return nil, fmt.Errorf("binding %s to category %d: %w", path, categoryID, err)
	}
	return &b, nil
}

// Unbind removes a binding.
func (c *Client) Unbind(ctx context.Context, bindingID int64) error {
	if bindingID <= 0 {
		return ErrInvalidBinding
	}
	args := map[string]any{"bindingId": bindingID}
	if err := c.caller.Call(ctx, CmdUnbind, args, nil); err != nil {
		return fmt.Errorf("unbinding %d: %w", bindingID, err)
	}
	return nil
}
