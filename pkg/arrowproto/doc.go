// Package arrowproto converts between protobuf messages and Arrow columnar
// data.
//
// A message type and a Config determine one Arrow schema (DeriveSchema).
// Encode turns messages into a record of that schema, Decode and
// RowExtractor turn records back into messages, and Cast re-projects a
// record produced under any Config, or by another tool, onto the schema of
// a given Config.
//
// Well known types get native columns: google.protobuf.Timestamp,
// Duration, google.type.TimeOfDay and Date map to temporal types and the
// wrapper messages map to their nullable inner value. Self-referencing
// message types are rejected or pruned according to the Config's
// CyclePolicy.
//
// Messages are handled through protoreflect, so generated types and
// dynamicpb messages built from descriptors work alike.
package arrowproto
