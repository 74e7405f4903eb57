package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				data JSONB NOT NULL,
				owner VARCHAR(255) NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flows_owner ON flows(owner);
			CREATE INDEX idx_flows_created_at ON flows(created_at);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				mode VARCHAR(50) NOT NULL,
				triggered_by VARCHAR(255) NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				input_data JSONB NOT NULL DEFAULT '{}',
				output_data JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				total_nodes INTEGER NOT NULL DEFAULT 0,
				completed_nodes INTEGER NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_executions_flow_id ON executions(flow_id);
			CREATE INDEX idx_executions_status ON executions(status);

			CREATE TABLE node_executions (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(255) NOT NULL,
				node_label VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				execution_time_ms BIGINT,
				input_data JSONB NOT NULL DEFAULT '{}',
				output_data JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_node_executions_execution_id ON node_executions(execution_id, created_at);
		`,
		2: `
			CREATE TABLE channels (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(100) NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE channel_connections (
				id VARCHAR(255) PRIMARY KEY,
				channel_id VARCHAR(255) NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
				owner VARCHAR(255) NOT NULL DEFAULT '',
				account_name VARCHAR(255) NOT NULL DEFAULT '',
				credentials JSONB,
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_channel_connections_channel_id ON channel_connections(channel_id);
		`,
	}
}
