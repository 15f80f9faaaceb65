// Package review asks a text-generation provider for a second opinion on
// an engine verdict.
//
// The prompt is built deterministically from the verdict and the audited
// conversation, so the same audit always produces the same request. The
// model is asked for a JSON object {"agrees": bool, "rationale": string};
// the first such object in the reply is used, so replies wrapped in prose or
// code fences still parse.
//
// A review never changes the verdict. The audit service attaches the
// opinion to the stored record and records review failures in its Error
// field.
package review
