package sqlinline

// Schema creates the identity service tables. Statements are idempotent and
// run in order.
var Schema = []string{
	`--sql 0f5ebc0f-2b97-4e4d-86cc-788bb26fecf5
create table if not exists accounts (
    id uuid primary key,
    email text not null unique,
    password_hash bytea not null,
    created_at timestamptz not null default now()
);
`,
	`--sql 09a2e4a9-9e87-49ac-9b30-75eeb3014a21
create table if not exists profiles (
    id uuid primary key references accounts (id) on delete cascade,
    name text not null,
    email text not null,
    plan text not null default 'free',
    credits integer not null default 50 check (credits >= 0),
    max_credits integer not null default 100 check (max_credits >= 0),
    usage jsonb not null default '{}'::jsonb,
    updated_at timestamptz not null default now()
);
`,
	`--sql 891572aa-3ccd-4b6f-ac25-c6a3d85bdf98
create table if not exists auth_sessions (
    id uuid primary key,
    user_id uuid not null references accounts (id) on delete cascade,
    locale text not null default '',
    country text not null default '',
    created_at timestamptz not null default now(),
    expires_at timestamptz not null,
    revoked_at timestamptz
);
`,
	`--sql 2b4ec0b7-857d-4e5c-a308-027fef70b224
create index if not exists auth_sessions_user_idx on auth_sessions (user_id) where revoked_at is null;
`,
	`--sql dd968aa2-21d1-4d4e-8e44-0fe863db3947
create table if not exists documents (
    id uuid primary key,
    user_id uuid not null references accounts (id) on delete cascade,
    title text not null,
    content text not null default '',
    processed_content text not null default '',
    tool_type text not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`,
	`--sql 3a259404-294c-40d9-88aa-23ddbf8a0dd1
create index if not exists documents_owner_recent_idx on documents (user_id, updated_at desc, created_at desc);
`,
}
