package sessions

import "context"

type contextKey string

const stateContextKey contextKey = "auth_state"

// WithState returns a copy of ctx carrying state.
func WithState(ctx context.Context, state AuthState) context.Context {
	return context.WithValue(ctx, stateContextKey, state)
}

// StateFromContext returns the AuthState stored by WithState.
func StateFromContext(ctx context.Context) (AuthState, bool) {
	state, ok := ctx.Value(stateContextKey).(AuthState)
	return state, ok
}
