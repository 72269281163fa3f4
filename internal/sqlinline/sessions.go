package sqlinline

const QInsertSession = `--sql ca8a195a-7460-4ab1-9a21-6f9173b4521f
insert into auth_sessions (id, user_id, locale, country, created_at, expires_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::timestamptz, $6::timestamptz);
`

const QSelectSessionByID = `--sql fee59907-d66a-44bb-a330-d28035624382
select id, user_id, locale, country, created_at, expires_at, revoked_at
from auth_sessions
where id = $1::uuid
limit 1;
`

const QSelectActiveSessions = `--sql c024d7bd-b7d8-4306-bbf2-cf11461230cc
select id, user_id, locale, country, created_at, expires_at, revoked_at
from auth_sessions
where user_id = $1::uuid
  and revoked_at is null
  and expires_at > $2::timestamptz
order by created_at desc;
`

const QRevokeSession = `--sql 1763ac32-15eb-44a3-aece-c4f86a25461c
update auth_sessions set revoked_at = $2::timestamptz
where id = $1::uuid and revoked_at is null;
`

const QRevokeUserSessions = `--sql 28d54cf1-1373-49b8-9453-5fe860f74028
update auth_sessions set revoked_at = $2::timestamptz
where user_id = $1::uuid and revoked_at is null;
`
