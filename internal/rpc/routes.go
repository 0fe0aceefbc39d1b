package rpc

import (
	"net/http"

	"connectrpc.com/connect"
)

const (
	AuthServiceName    = "splitplus.v1.AuthService"
	ExpenseServiceName = "splitplus.v1.ExpenseService"
	GroupServiceName   = "splitplus.v1.GroupService"
)

const (
	AuthServiceRegisterProcedure = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure    = "/" + AuthServiceName + "/Login"

	ExpenseServiceCreateExpenseProcedure    = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceUpdateExpenseProcedure    = "/" + ExpenseServiceName + "/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure    = "/" + ExpenseServiceName + "/DeleteExpense"
	ExpenseServiceListExpensesProcedure     = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceGetGroupBalancesProcedure = "/" + ExpenseServiceName + "/GetGroupBalances"
	ExpenseServicePreviewSplitProcedure     = "/" + ExpenseServiceName + "/PreviewSplit"

	GroupServiceCreateGroupProcedure        = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure           = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure         = "/" + GroupServiceName + "/ListGroups"
	GroupServiceInviteMemberProcedure       = "/" + GroupServiceName + "/InviteMember"
	GroupServiceAcceptInviteProcedure       = "/" + GroupServiceName + "/AcceptInvite"
	GroupServiceDeclineInviteProcedure      = "/" + GroupServiceName + "/DeclineInvite"
	GroupServiceRequestJoinProcedure        = "/" + GroupServiceName + "/RequestJoin"
	GroupServiceApproveJoinRequestProcedure = "/" + GroupServiceName + "/ApproveJoinRequest"
	GroupServiceRejectJoinRequestProcedure  = "/" + GroupServiceName + "/RejectJoinRequest"
	GroupServiceDeleteGroupProcedure        = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceConfigureMirrorProcedure    = "/" + GroupServiceName + "/ConfigureMirror"
	GroupServicePullMirrorProcedure         = "/" + GroupServiceName + "/PullMirror"
)

// NewAuthServiceHandler builds the HTTP handler for the auth service and
// returns the path prefix to mount it on.
func NewAuthServiceHandler(h *AuthHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, h.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, h.Login, opts...))
	return "/" + AuthServiceName + "/", mux
}

// NewExpenseServiceHandler builds the HTTP handler for the expense service.
func NewExpenseServiceHandler(h *ExpenseHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	mux := http.NewServeMux()
	mux.Handle(ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, h.CreateExpense, opts...))
	mux.Handle(ExpenseServiceUpdateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceUpdateExpenseProcedure, h.UpdateExpense, opts...))
	mux.Handle(ExpenseServiceDeleteExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, h.DeleteExpense, opts...))
	mux.Handle(ExpenseServiceListExpensesProcedure, connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, h.ListExpenses, opts...))
	mux.Handle(ExpenseServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(ExpenseServiceGetGroupBalancesProcedure, h.GetGroupBalances, opts...))
	mux.Handle(ExpenseServicePreviewSplitProcedure, connect.NewUnaryHandler(ExpenseServicePreviewSplitProcedure, h.PreviewSplit, opts...))
	return "/" + ExpenseServiceName + "/", mux
}

// NewGroupServiceHandler builds the HTTP handler for the group service.
func NewGroupServiceHandler(h *GroupHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withJSON(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, h.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, h.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, h.ListGroups, opts...))
	mux.Handle(GroupServiceInviteMemberProcedure, connect.NewUnaryHandler(GroupServiceInviteMemberProcedure, h.InviteMember, opts...))
	mux.Handle(GroupServiceAcceptInviteProcedure, connect.NewUnaryHandler(GroupServiceAcceptInviteProcedure, h.AcceptInvite, opts...))
	mux.Handle(GroupServiceDeclineInviteProcedure, connect.NewUnaryHandler(GroupServiceDeclineInviteProcedure, h.DeclineInvite, opts...))
	mux.Handle(GroupServiceRequestJoinProcedure, connect.NewUnaryHandler(GroupServiceRequestJoinProcedure, h.RequestJoin, opts...))
	mux.Handle(GroupServiceApproveJoinRequestProcedure, connect.NewUnaryHandler(GroupServiceApproveJoinRequestProcedure, h.ApproveJoinRequest, opts...))
	mux.Handle(GroupServiceRejectJoinRequestProcedure, connect.NewUnaryHandler(GroupServiceRejectJoinRequestProcedure, h.RejectJoinRequest, opts...))
	mux.Handle(GroupServiceDeleteGroupProcedure, connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, h.DeleteGroup, opts...))
	mux.Handle(GroupServiceConfigureMirrorProcedure, connect.NewUnaryHandler(GroupServiceConfigureMirrorProcedure, h.ConfigureMirror, opts...))
	mux.Handle(GroupServicePullMirrorProcedure, connect.NewUnaryHandler(GroupServicePullMirrorProcedure, h.PullMirror, opts...))
	return "/" + GroupServiceName + "/", mux
}

func withJSON(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}
