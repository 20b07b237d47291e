package kafka

import (
    "context"
    "fmt"
    "time"

    "github.com/segmentio/kafka-go"
)

// Delivery is one message as hooks see it: the topic it arrived on, the
// raw Kafka message, and the payload bytes headed for the handler.
type Delivery struct {
    Topic string
    Msg   kafka.Message
    Data  []byte
}

// ConsumerHook observes and optionally rewrites message handling.
// BeforeHandle may replace the context and the delivery that reach the
// handler; returning an error skips the handler and routes the message
// through error processing (OnError, DLQ, offset commit).
type ConsumerHook interface {
    BeforeHandle(ctx context.Context, d Delivery) (context.Context, Delivery, error)
    AfterHandle(ctx context.Context, d Delivery, err error)
    OnError(ctx context.Context, d Delivery, err error)
}

// NoopHook is the default hook; it passes everything through untouched.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, d Delivery) (context.Context, Delivery, error) {
    return ctx, d, nil
}

func (NoopHook) AfterHandle(context.Context, Delivery, error) {}

func (NoopHook) OnError(context.Context, Delivery, error) {}

// TracingHook stamps each message context with its handling start time
// and any trace id carried in the message headers. Handlers read the
// metadata back with StartTimeFrom and TraceIDFrom.
type TracingHook struct{}

func (TracingHook) BeforeHandle(ctx context.Context, d Delivery) (context.Context, Delivery, error) {
    ctx = WithStartTime(ctx, time.Now())
    ctx = WithTraceID(ctx, ExtractTraceID(d.Msg))
    return ctx, d, nil
}

func (TracingHook) AfterHandle(context.Context, Delivery, error) {}

func (TracingHook) OnError(context.Context, Delivery, error) {}

// HookError classifies an error raised by a hook, with a stable Code
// such as "ERR_VALIDATION" or "ERR_PANIC".
type HookError struct {
    Code string
    Err  error
}

func (e *HookError) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %v", e.Code, e.Err)
    }
    return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// HookFuncs adapts plain functions into a ConsumerHook. Nil functions
// are no-ops.
type HookFuncs struct {
    Before func(context.Context, Delivery) (context.Context, Delivery, error)
    After  func(context.Context, Delivery, error)
    Err    func(context.Context, Delivery, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, d Delivery) (context.Context, Delivery, error) {
    if h.Before == nil {
        return ctx, d, nil
    }
    return h.Before(ctx, d)
}

func (h HookFuncs) AfterHandle(ctx context.Context, d Delivery, err error) {
    if h.After != nil {
        h.After(ctx, d, err)
    }
}

func (h HookFuncs) OnError(ctx context.Context, d Delivery, err error) {
    if h.Err != nil {
        h.Err(ctx, d, err)
    }
}

// HookChain runs several hooks as one. BeforeHandle threads the context
// and delivery through the hooks in order; the first error stops the
// chain, notifies every hook's OnError, and hands the caller back its
// original delivery. AfterHandle runs in reverse order, unwinding like
// a stack. A panicking hook is contained and cannot crash the consumer.
type HookChain struct {
    hooks []ConsumerHook
}

// NewHookChain builds a chain, skipping nil hooks.
func NewHookChain(hooks ...ConsumerHook) *HookChain {
    kept := make([]ConsumerHook, 0, len(hooks))
    for _, h := range hooks {
        if h != nil {
            kept = append(kept, h)
        }
    }
    return &HookChain{hooks: kept}
}

func (c *HookChain) BeforeHandle(ctx context.Context, d Delivery) (context.Context, Delivery, error) {
    orig := d
    for _, h := range c.hooks {
        nextCtx, next, err := safeBefore(h, ctx, d)
        if err != nil {
            for _, eh := range c.hooks {
                safeOnError(eh, ctx, orig, err)
            }
            return ctx, orig, err
        }
        ctx, d = nextCtx, next
    }
    return ctx, d, nil
}

func (c *HookChain) AfterHandle(ctx context.Context, d Delivery, err error) {
    for i := len(c.hooks) - 1; i >= 0; i-- {
        safeAfter(c.hooks[i], ctx, d, err)
    }
}

func (c *HookChain) OnError(ctx context.Context, d Delivery, err error) {
    for _, h := range c.hooks {
        safeOnError(h, ctx, d, err)
    }
}

type ctxKey string

const (
    // CtxStartTime holds the time.Time when handling started.
    CtxStartTime ctxKey = "kafka_hook_start_time"
    // CtxTraceID holds the correlation id extracted from headers.
    CtxTraceID ctxKey = "kafka_hook_trace_id"
)

// WithStartTime sets the handling start time in the context.
func WithStartTime(ctx context.Context, t time.Time) context.Context {
    return context.WithValue(ctx, CtxStartTime, t)
}

// WithTraceID sets the trace id in the context; empty ids are dropped.
func WithTraceID(ctx context.Context, traceID string) context.Context {
    if traceID == "" {
        return ctx
    }
    return context.WithValue(ctx, CtxTraceID, traceID)
}

// StartTimeFrom returns the handling start time stamped by TracingHook.
func StartTimeFrom(ctx context.Context) (time.Time, bool) {
    t, ok := ctx.Value(CtxStartTime).(time.Time)
    return t, ok
}

// TraceIDFrom returns the trace id stamped by TracingHook, if any.
func TraceIDFrom(ctx context.Context) string {
    s, _ := ctx.Value(CtxTraceID).(string)
    return s
}

// ExtractTraceID pulls a trace id from Kafka message headers.
func ExtractTraceID(msg kafka.Message) string {
    for _, h := range msg.Headers {
        if h.Key == "trace_id" && len(h.Value) > 0 {
            return string(h.Value)
        }
    }
    return ""
}

func safeBefore(h ConsumerHook, ctx context.Context, d Delivery) (rctx context.Context, rd Delivery, err error) {
    defer func() {
        if r := recover(); r != nil {
            rctx, rd = ctx, d
            err = &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("hook panic: %v", r)}
        }
    }()
    return h.BeforeHandle(ctx, d)
}

func safeAfter(h ConsumerHook, ctx context.Context, d Delivery, err error) {
    defer func() {
        // a hook must never crash the consumer
        _ = recover()
    }()
    h.AfterHandle(ctx, d, err)
}

func safeOnError(h ConsumerHook, ctx context.Context, d Delivery, err error) {
    defer func() {
        // a hook must never crash the consumer
        _ = recover()
    }()
    h.OnError(ctx, d, err)
}
