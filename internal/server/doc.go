// Package server exposes the pipeline over HTTP.
//
// Routes:
//
//	GET  /health                          pipeline health (503 when the store is down)
//	GET  /version                         build information
//	GET  /api/sources                     source adapter status
//	GET  /api/paths/{pathID}/insight      niche insight (?niche=&subSector=)
//	GET  /api/paths/{pathID}/signals      stored market signals
//	GET  /api/paths/{pathID}/status       latest run state
//	POST /api/paths/{pathID}/run          run the pipeline (?niche=&subSector=&ifStale=true)
//	GET  /ws/progress                     websocket progress stream (?pathId=)
package server
