package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"StaySafe/internal/model"
	"StaySafe/pkg/errors"
	"StaySafe/pkg/response"
)

// ListContacts 列出紧急联系人。
// GET /v1/contacts
func ListContacts(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	response.Success(ctx, c, container.Snapshot().Contacts)
}

// CreateContact 新增紧急联系人。
// POST /v1/contacts
func CreateContact(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	var req model.CreateContactRequest
	if err := c.Bind(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	contact, err := container.CreateContact(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, contact)
}

// DeleteContact 删除紧急联系人。
// DELETE /v1/contacts/:contact_id
func DeleteContact(ctx context.Context, c *app.RequestContext) {
	container, ok := guestContainer(ctx, c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("contact_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, errors.ContactNotFound)
		return
	}

	if err := container.DeleteContact(ctx, id); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}
