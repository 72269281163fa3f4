package sqlinline

const QInsertAccount = `--sql 9fad7c2f-75c8-423a-8824-39f33d5a7d0c
insert into accounts (id, email, password_hash)
values ($1::uuid, $2::text, $3::bytea)
returning created_at;
`

const QInsertProfile = `--sql c2166151-6fb5-43c7-af30-39b7c052649a
insert into profiles (id, name, email, plan, credits, max_credits, usage)
values ($1::uuid, $2::text, $3::text, $4::text, $5::int, $6::int, $7::jsonb);
`

const QSelectAccountByEmail = `--sql f0d6e99e-ff3f-40bf-a186-6edb798eeafa
select id, email, password_hash, created_at
from accounts
where email = lower($1::text)
limit 1;
`

const QDeleteAccount = `--sql 7bda884b-a711-4183-a43f-7cef2d8564b7
delete from accounts
where id = $1::uuid;
`
