// Package trace records headless Ark Shepherds runs as zstd-compressed JSON
// lines.
//
// A trace starts with a header line holding a run ID, the level and every
// drawn path, continues with one line per resolved turn and ends with a
// result line. Because the simulation is deterministic, Verify can replay a
// trace from its header alone and confirm each turn matches.
//
//	w, err := trace.Create("run.jsonl.zst")
//	if err != nil {
//		return err
//	}
//	result, err := trace.Record(w, trace.NewHeader("01_meadow", level, paths), logger)
//	w.Close()
package trace
