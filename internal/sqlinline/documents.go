package sqlinline

const QSelectDocumentsByOwner = `--sql 00f4eb47-f766-4f72-9ed0-c1a6214f80dd
select id, title, content, processed_content, tool_type, created_at, updated_at
from documents
where user_id = $1::uuid
order by updated_at desc, created_at desc;
`

const QInsertDocument = `--sql 47e14aa6-846c-42df-ab4e-682ab92742d0
insert into documents (id, user_id, title, content, processed_content, tool_type)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text)
returning created_at, updated_at;
`

const QUpdateDocument = `--sql a387be97-c892-4d00-9b11-2d1e6818d131
update documents set
    title = coalesce($3::text, title),
    content = coalesce($4::text, content),
    processed_content = coalesce($5::text, processed_content),
    tool_type = coalesce($6::text, tool_type),
    updated_at = coalesce($7::timestamptz, now())
where id = $1::uuid and user_id = $2::uuid;
`

const QDeleteDocument = `--sql 47770b4c-d747-4185-ba13-6e8d84c7708c
delete from documents
where id = $1::uuid and user_id = $2::uuid;
`
