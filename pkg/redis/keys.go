package redis

import "strings"

const defaultNamespace = "lb"

// Keys builds colon separated keys under one namespace ("lb" when empty).
type Keys struct {
	Namespace string
}

// IdempotencyKey scopes a client supplied Idempotency-Key, e.g.
// lb:idempotency:POST|/api/v1/recurring-profiles:abc.
func (k Keys) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

// LockKey names the cron lock for one deployment environment.
func (k Keys) LockKey(name, env string) string {
	if env == "" {
		env = "local"
	}
	return k.join("lock", name, env)
}

func (k Keys) join(parts ...string) string {
	ns := k.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	var b strings.Builder
	b.WriteString(ns)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
