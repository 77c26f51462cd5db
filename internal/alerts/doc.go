// Package alerts evaluates threshold rules against prediction verdicts.
//
// Rules are simple "field operator value" expressions over the verdict
// (failure_probability, tool_wear, band, …). A firing rule produces an
// Alert, subject to a per-rule cooldown, and triggers asynchronous webhook
// delivery (slack, teams, or plain HTTP POST). When a machine recovers —
// typically after maintenance — the firing alert resolves and a resolution
// notification goes out.
package alerts
