package rpc

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"connectrpc.com/connect"

	"github.com/mmynk/splitplus/internal/mirror"
	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/service"
)

// MirrorPuller refreshes a group from its sheet mirror.
type MirrorPuller interface {
	Pull(ctx context.Context, groupID string) (*mirror.PullResult, error)
}

// GroupHandler implements splitplus.v1.GroupService.
type GroupHandler struct {
	groups *service.GroupService
	users  UserDirectory
	puller MirrorPuller
}

// NewGroupHandler creates a new group handler. puller may be nil, in which
// case PullMirror is unimplemented.
func NewGroupHandler(groups *service.GroupService, users UserDirectory, puller MirrorPuller) *GroupHandler {
	return &GroupHandler{groups: groups, users: users, puller: puller}
}

// CreateGroup creates a group owned by the caller and invites users by name.
func (h *GroupHandler) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	slog.Info("CreateGroup request received", "name", req.Msg.Name, "invitees_count", len(req.Msg.Invitees))
	callerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	invitees := make([]string, 0, len(req.Msg.Invitees))
	for _, name := range req.Msg.Invitees {
		u, err := h.users.GetUserByUsername(ctx, name)
		if err != nil {
			return nil, toConnectError(err)
		}
		invitees = append(invitees, u.ID)
	}

	group, err := h.groups.CreateGroup(ctx, req.Msg.Name, callerID, invitees)
	if err != nil {
		return nil, toConnectError(err)
	}
	return h.groupResponse(ctx, group, callerID)
}

// GetGroup returns a group. Any signed-in user may look a group up so they
// can ask to join it.
func (h *GroupHandler) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	callerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := h.groups.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return h.groupResponse(ctx, group, callerID)
}

// ListGroups returns the caller's groups and their open invites.
func (h *GroupHandler) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	callerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := h.groups.ListUserGroups(ctx, callerID)
	if err != nil {
		return nil, toConnectError(err)
	}
	invites, err := h.groups.PendingInvites(ctx, callerID)
	if err != nil {
		return nil, toConnectError(err)
	}

	users, err := h.users.GetUsersByIDs(ctx, groupUserIDs(slices.Concat(groups, invites)...))
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &ListGroupsResponse{
		Groups:  make([]GroupView, len(groups)),
		Invites: make([]GroupView, len(invites)),
	}
	for i, g := range groups {
		resp.Groups[i] = toGroupView(g, users, callerID)
	}
	for i, g := range invites {
		resp.Invites[i] = toGroupView(g, users, callerID)
	}
	slog.Debug("ListGroups successful", "user_id", callerID, "groups", len(groups), "invites", len(invites))
	return connect.NewResponse(resp), nil
}

// InviteMember invites a user by name. Only members can invite.
func (h *GroupHandler) InviteMember(ctx context.Context, req *connect.Request[InviteMemberRequest]) (*connect.Response[GroupResponse], error) {
	callerID, err := h.requireMember(ctx, req.Msg, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	invitee, err := h.users.GetUserByUsername(ctx, req.Msg.Username)
	if err != nil {
		return nil, toConnectError(err)
	}
	return h.apply(ctx, callerID, func() (*models.Group, error) {
		return h.groups.InviteMember(ctx, req.Msg.GroupID, invitee.ID)
	})
}

// AcceptInvite makes the caller an active member.
func (h *GroupHandler) AcceptInvite(ctx context.Context, req *connect.Request[GroupActionRequest]) (*connect.Response[GroupResponse], error) {
	return h.self(ctx, req.Msg, h.groups.AcceptInvite)
}

// DeclineInvite drops the caller's invite.
func (h *GroupHandler) DeclineInvite(ctx context.Context, req *connect.Request[GroupActionRequest]) (*connect.Response[GroupResponse], error) {
	return h.self(ctx, req.Msg, h.groups.DeclineInvite)
}

// RequestJoin asks the group's members to let the caller in.
func (h *GroupHandler) RequestJoin(ctx context.Context, req *connect.Request[GroupActionRequest]) (*connect.Response[GroupResponse], error) {
	return h.self(ctx, req.Msg, h.groups.RequestJoin)
}

// ApproveJoinRequest admits a user who asked to join.
func (h *GroupHandler) ApproveJoinRequest(ctx context.Context, req *connect.Request[MemberActionRequest]) (*connect.Response[GroupResponse], error) {
	return h.other(ctx, req.Msg, h.groups.ApproveJoinRequest)
}

// RejectJoinRequest drops a join request.
func (h *GroupHandler) RejectJoinRequest(ctx context.Context, req *connect.Request[MemberActionRequest]) (*connect.Response[GroupResponse], error) {
	return h.other(ctx, req.Msg, h.groups.RejectJoinRequest)
}

// DeleteGroup removes a group and its expenses. Only the creator may do this.
func (h *GroupHandler) DeleteGroup(ctx context.Context, req *connect.Request[GroupActionRequest]) (*connect.Response[DeleteGroupResponse], error) {
	slog.Info("DeleteGroup request received", "group_id", req.Msg.GroupID)
	callerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	group, err := h.groups.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if group.CreatedBy != callerID {
		return nil, toConnectError(errNotGroupAdmin)
	}
	if err := h.groups.DeleteGroup(ctx, group.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteGroupResponse{}), nil
}

// ConfigureMirror sets or clears the group's sheet mirror URL.
func (h *GroupHandler) ConfigureMirror(ctx context.Context, req *connect.Request[ConfigureMirrorRequest]) (*connect.Response[GroupResponse], error) {
	callerID, err := h.requireMember(ctx, req.Msg, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	return h.apply(ctx, callerID, func() (*models.Group, error) {
		return h.groups.ConfigureMirror(ctx, req.Msg.GroupID, req.Msg.URL)
	})
}

// PullMirror replaces the group's local data with its mirror's.
func (h *GroupHandler) PullMirror(ctx context.Context, req *connect.Request[GroupActionRequest]) (*connect.Response[PullMirrorResponse], error) {
	slog.Info("PullMirror request received", "group_id", req.Msg.GroupID)
	callerID, err := h.requireMember(ctx, req.Msg, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if h.puller == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("mirror pulls are not enabled"))
	}

	result, err := h.puller.Pull(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	users, err := h.users.GetUsersByIDs(ctx, groupUserIDs(result.Group))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PullMirrorResponse{
		Group:    toGroupView(result.Group, users, callerID),
		Expenses: result.Expenses,
	}), nil
}

// self runs a membership change the caller makes for themselves.
func (h *GroupHandler) self(ctx context.Context, msg *GroupActionRequest, change func(context.Context, string, string) (*models.Group, error)) (*connect.Response[GroupResponse], error) {
	callerID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(msg); err != nil {
		return nil, err
	}
	return h.apply(ctx, callerID, func() (*models.Group, error) {
		return change(ctx, msg.GroupID, callerID)
	})
}

// other runs a membership change a member makes for another user.
func (h *GroupHandler) other(ctx context.Context, msg *MemberActionRequest, change func(context.Context, string, string) (*models.Group, error)) (*connect.Response[GroupResponse], error) {
	callerID, err := h.requireMember(ctx, msg, msg.GroupID)
	if err != nil {
		return nil, err
	}
	return h.apply(ctx, callerID, func() (*models.Group, error) {
		return change(ctx, msg.GroupID, msg.UserID)
	})
}

func (h *GroupHandler) requireMember(ctx context.Context, msg any, groupID string) (string, error) {
	callerID, err := caller(ctx)
	if err != nil {
		return "", err
	}
	if err := validateRequest(msg); err != nil {
		return "", err
	}
	group, err := h.groups.GetGroup(ctx, groupID)
	if err != nil {
		return "", toConnectError(err)
	}
	if !group.IsMember(callerID) {
		return "", toConnectError(errNotGroupMember)
	}
	return callerID, nil
}

func (h *GroupHandler) apply(ctx context.Context, callerID string, change func() (*models.Group, error)) (*connect.Response[GroupResponse], error) {
	group, err := change()
	if err != nil {
		return nil, toConnectError(err)
	}
	return h.groupResponse(ctx, group, callerID)
}

func (h *GroupHandler) groupResponse(ctx context.Context, g *models.Group, callerID string) (*connect.Response[GroupResponse], error) {
	users, err := h.users.GetUsersByIDs(ctx, groupUserIDs(g))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroupView(g, users, callerID)}), nil
}
