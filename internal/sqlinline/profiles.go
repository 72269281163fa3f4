package sqlinline

const QSelectProfileByID = `--sql 5682c93e-7d63-44a1-917d-815ffc1d19ad
select id, name, email, plan, credits, max_credits, usage
from profiles
where id = $1::uuid
limit 1;
`

// QUpdateProfile applies a partial update: null arguments keep the column and
// usage entries are merged key by key.
const QUpdateProfile = `--sql 0f0f52b4-d899-4c83-89c1-a8133662e84b
update profiles set
    name = coalesce($2::text, name),
    plan = coalesce($3::text, plan),
    credits = coalesce($4::int, credits),
    max_credits = coalesce($5::int, max_credits),
    usage = usage || coalesce($6::jsonb, '{}'::jsonb),
    updated_at = now()
where id = $1::uuid
returning id, name, email, plan, credits, max_credits, usage;
`

const QSetPlanByEmail = `--sql 6ab2572a-120c-44af-bfb8-801b73969dbf
update profiles set
    plan = $2::text,
    credits = coalesce($3::int, credits),
    max_credits = coalesce($4::int, max_credits),
    updated_at = now()
where email = lower($1::text)
returning id, plan, credits, max_credits;
`
