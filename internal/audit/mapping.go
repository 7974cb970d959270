package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Me reads the caller's own account; audit it on resource "self".
var methodOverrides = map[string]ActionResource{
	"/taskmgr.auth.v1.AuthService/Me": {Action: "get", Resource: "self"},
}

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /taskmgr.audit.v1.AuditService/ListAuditLogs).
// Action is a verb: get, list, create, update, delete, or a lowercase method name for others.
// Resource is derived from the service name (e.g. AuditService -> audit).
func ParseFullMethod(fullMethod string) ActionResource {
	if ar, ok := methodOverrides[fullMethod]; ok {
		return ar
	}
	// fullMethod format: /taskmgr.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	serviceName := beforeSlash[dot+1:]
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(serviceName)}
}

func serviceToResource(serviceName string) string {
	// AuditService -> audit, OTPService -> otp
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s)
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Create"):
		return "create"
	case strings.HasPrefix(method, "Update"):
		return "update"
	case strings.HasPrefix(method, "Delete"):
		return "delete"
	case strings.HasPrefix(method, "Register"):
		return "register"
	case strings.HasPrefix(method, "Request"):
		return "request"
	case strings.HasPrefix(method, "Verify"):
		return "verify"
	case strings.HasPrefix(method, "Complete"):
		return "complete"
	case strings.HasPrefix(method, "Lookup"):
		return "lookup"
	default:
		return strings.ToLower(method)
	}
}
