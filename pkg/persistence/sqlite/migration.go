package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				data TEXT NOT NULL,
				owner TEXT NOT NULL DEFAULT '',
				is_active INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			CREATE INDEX idx_flows_owner ON flows(owner);

			CREATE TABLE executions (
				id TEXT PRIMARY KEY,
				flow_id TEXT NOT NULL,
				status TEXT NOT NULL,
				mode TEXT NOT NULL,
				triggered_by TEXT NOT NULL DEFAULT '',
				started_at TEXT NOT NULL,
				completed_at TEXT,
				input_data TEXT NOT NULL DEFAULT '{}',
				output_data TEXT,
				error_message TEXT NOT NULL DEFAULT '',
				total_nodes INTEGER NOT NULL DEFAULT 0,
				completed_nodes INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_executions_flow_id ON executions(flow_id);

			CREATE TABLE node_executions (
				id TEXT PRIMARY KEY,
				execution_id TEXT NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id TEXT NOT NULL,
				node_type TEXT NOT NULL,
				node_label TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				started_at TEXT,
				completed_at TEXT,
				execution_time_ms INTEGER,
				input_data TEXT NOT NULL DEFAULT '{}',
				output_data TEXT,
				error_message TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			);

			CREATE INDEX idx_node_executions_execution_id ON node_executions(execution_id, created_at);
		`,
		2: `
			CREATE TABLE channels (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL
			);

			CREATE TABLE channel_connections (
				id TEXT PRIMARY KEY,
				channel_id TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
				owner TEXT NOT NULL DEFAULT '',
				account_name TEXT NOT NULL DEFAULT '',
				credentials TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL
			);
		`,
	}
}
