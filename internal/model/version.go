package model

// ToolName is used as the plugin name and in message types.
const ToolName = "webperf-plugin-css"

// ToolVersion is stamped on page results.
const ToolVersion = "0.4.0"
