package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE test_runs (
				id UUID PRIMARY KEY,
				test_suite_id VARCHAR(255) NOT NULL,
				test_case_ids JSONB NOT NULL,
				execution_target JSONB NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'awaiting', 'passed', 'failed')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_test_runs_status ON test_runs(status);
			CREATE INDEX idx_test_runs_suite ON test_runs(test_suite_id);
			CREATE INDEX idx_test_runs_created_at ON test_runs(created_at);

			CREATE TABLE test_cases (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				execution_target JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE test_suites (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				test_case_ids JSONB NOT NULL DEFAULT '[]',
				default_execution_target JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_test_suites_case_ids ON test_suites USING GIN (test_case_ids);

			CREATE TABLE integrations (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL CHECK (type IN ('gitlab', 'github', 'manual')),
				enabled BOOLEAN NOT NULL DEFAULT true,
				is_default BOOLEAN NOT NULL DEFAULT false,
				config JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_integrations_default ON integrations(is_default) WHERE is_default;
		`,
	}
}
