// Package stevedore supervises container lifecycles on behalf of a remote
// control API.
//
// The core pieces are:
//
//   - Gateway: the boundary to the container engine (create, resolve,
//     stop, remove, logs, archive fetch). engine.Docker implements it
//     over the Docker API; tests implement it in-process.
//   - StateStore: an in-memory, process-lifetime registry of the last
//     observed lifecycle record per container name.
//   - Supervisor: creates containers, spawns one background monitor task
//     per creation, and answers state/stop/remove/logs/download requests
//     consistently with the store.
//   - Download: the archive retrieval pipeline that turns an engine tar
//     stream into a single extracted file on the host.
//
// A monitor task polls its container through the gateway and overwrites
// the store record on every cycle until it observes a terminal status
// ("exited", "dead", or the supervisor-assigned "errored" after repeated
// reload failures). Creation returns before the first poll completes, so
// a State call issued immediately after Create can miss; callers retry.
//
// Records are never deleted. After Remove, the last observed record stays
// readable until the process restarts.
//
// The HTTP surface lives in the serve package; the Docker-backed gateway
// in the engine package.
package stevedore
