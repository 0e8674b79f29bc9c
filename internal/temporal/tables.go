package temporal

import (
	"strings"

	"github.com/unbound-force/sounding/internal/naming"
)

// Pair is one entry of the paired-operation table.
type Pair struct {
	Open     string
	Close    string
	Severity float64
}

// PairedOps lists the known open/close pairs. Stats and findings
// follow this order.
var PairedOps = []Pair{
	{"open", "close", 0.8},
	{"lock", "unlock", 0.9},
	{"acquire", "release", 0.9},
	{"begin", "commit", 0.7},
	{"begin", "end", 0.6},
	{"start", "stop", 0.7},
	{"connect", "disconnect", 0.8},
	{"enter", "exit", 0.7},
	{"push", "pop", 0.5},
	{"subscribe", "unsubscribe", 0.6},
	{"register", "unregister", 0.6},
	{"enable", "disable", 0.5},
	{"activate", "deactivate", 0.6},
	{"attach", "detach", 0.6},
	{"bind", "unbind", 0.7},
	{"mount", "unmount", 0.8},
	{"init", "deinit", 0.7},
	{"setup", "teardown", 0.7},
	{"create", "destroy", 0.7},
	{"alloc", "free", 0.9},
	{"malloc", "free", 0.9},
	{"borrow", "return", 0.6},
	{"checkout", "checkin", 0.6},
}

// LifecycleKeywords maps each phase to the name fragments that place
// a function in it. Phases are tried in AllPhases order.
var LifecycleKeywords = map[LifecyclePhase][]string{
	PhaseCreate:     {"new", "create", "build", "construct", "make"},
	PhaseConfigure:  {"configure", "config", "set_config", "with_config", "options"},
	PhaseInitialize: {"init", "initialize", "setup", "prepare", "bootstrap"},
	PhaseStart:      {"start", "begin", "run", "launch", "open", "connect", "activate"},
	PhaseActive:     {"process", "execute", "handle", "perform", "do_work"},
	PhaseStop:       {"stop", "end", "halt", "pause", "close", "disconnect", "deactivate"},
	PhaseCleanup:    {"cleanup", "clean", "dispose", "destroy", "drop", "finalize", "shutdown", "teardown"},
}

// StateCheckPatterns map predicate name fragments to the operation
// each implies has already run.
var StateCheckPatterns = []struct {
	Check   string
	Implies string
}{
	{"is_initialized", "init/initialize"},
	{"is_connected", "connect"},
	{"is_open", "open"},
	{"is_started", "start"},
	{"is_ready", "init/prepare"},
	{"is_running", "start/run"},
	{"is_active", "activate/start"},
	{"is_configured", "configure"},
	{"is_setup", "setup"},
	{"has_started", "start"},
	{"was_initialized", "init"},
	{"check_initialized", "init"},
	{"ensure_initialized", "init"},
	{"assert_initialized", "init"},
	{"require_connection", "connect"},
}

// GuardTypes are scoped guard types that release on drop.
var GuardTypes = []string{
	"MutexGuard", "RwLockReadGuard", "RwLockWriteGuard",
	"RefCell", "Ref", "RefMut",
	"ScopedJoinHandle", "Guard", "ScopeGuard", "Entered",
}

// ManualAllocPatterns are manual memory operations in unsafe code.
var ManualAllocPatterns = []string{
	"alloc", "dealloc", "realloc",
	"Box::from_raw", "Box::into_raw",
	"Vec::from_raw_parts", "String::from_raw_parts",
	"ptr::read", "ptr::write",
	"ManuallyDrop", "mem::forget", "mem::transmute",
}

// SpawnPatterns name calls that start a concurrent task.
var SpawnPatterns = []string{
	"spawn", "spawn_blocking", "spawn_local",
	"task::spawn", "tokio::spawn", "async_std::spawn", "rayon::spawn",
}

// JoinPatterns name calls that wait for a concurrent task.
var JoinPatterns = []string{
	"join", "join_all", "await", "block_on", "JoinHandle",
}

// IsSpawnCall reports whether a call name contains a spawn pattern.
func IsSpawnCall(name string) bool {
	return naming.ContainsAny(name, SpawnPatterns)
}

// IsJoinCall reports whether a call name contains a join pattern.
func IsJoinCall(name string) bool {
	return naming.ContainsAny(name, JoinPatterns)
}

// IsReleaseOp reports whether an allocation op releases memory.
func IsReleaseOp(op string) bool {
	return strings.Contains(op, "dealloc") ||
		strings.Contains(op, "free") ||
		strings.Contains(op, "drop")
}
